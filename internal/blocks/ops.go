package blocks

import "github.com/google/uuid"

// Append adds a new block of the given variant with its default payload.
// Order is always the current list length, keeping 0..N-1 contiguous.
func Append(list []Block, t Type) []Block {
	out := make([]Block, len(list), len(list)+1)
	copy(out, list)
	out = append(out, Block{
		ID:    uuid.NewString(),
		Type:  t,
		Data:  DefaultData(t),
		Order: len(list),
	})
	return out
}

// MoveUp swaps the identified block with its upper neighbour. No-op at the
// top boundary or for an unknown id.
func MoveUp(list []Block, id string) []Block {
	idx := indexOf(list, id)
	if idx <= 0 {
		return list
	}
	return swap(list, idx, idx-1)
}

// MoveDown swaps the identified block with its lower neighbour. No-op at the
// bottom boundary or for an unknown id.
func MoveDown(list []Block, id string) []Block {
	idx := indexOf(list, id)
	if idx == -1 || idx >= len(list)-1 {
		return list
	}
	return swap(list, idx, idx+1)
}

// Remove deletes the identified block and renumbers the remainder to a
// contiguous 0..N-1 sequence.
func Remove(list []Block, id string) []Block {
	idx := indexOf(list, id)
	if idx == -1 {
		return list
	}
	out := make([]Block, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return renumber(out)
}

// Reorder removes the element at from and reinserts it at to, then renumbers.
// The result is a permutation of the input: no block is lost or duplicated.
// Out-of-range indices leave the list unchanged.
func Reorder(list []Block, from, to int) []Block {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return list
	}
	out := make([]Block, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)

	tail := make([]Block, len(out)-to)
	copy(tail, out[to:])
	out = append(out[:to], list[from])
	out = append(out, tail...)
	return renumber(out)
}

// Renumber rewrites Order to match list position. Exposed for callers that
// assemble block lists from external input.
func Renumber(list []Block) []Block {
	return renumber(append([]Block(nil), list...))
}

func renumber(list []Block) []Block {
	for i := range list {
		list[i].Order = i
	}
	return list
}

func swap(list []Block, i, j int) []Block {
	out := make([]Block, len(list))
	copy(out, list)
	out[i], out[j] = out[j], out[i]
	return renumber(out)
}

func indexOf(list []Block, id string) int {
	for i, b := range list {
		if b.ID == id {
			return i
		}
	}
	return -1
}
