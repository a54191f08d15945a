package tokenizer

import "fmt"

type Side string

const (
	Pre  Side = "pre"
	Post Side = "post"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Pre, Post:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// PadSequences returns a fresh len(seqs) x maxLen matrix. Short rows are filled with
// zeros on the padding side; long rows lose tokens from the truncating side.
func PadSequences(seqs [][]int32, maxLen int, padding, truncating Side) [][]int32 {
	out := make([][]int32, len(seqs))
	for i, seq := range seqs {
		row := make([]int32, maxLen)
		if len(seq) > maxLen {
			if truncating == Pre {
				seq = seq[len(seq)-maxLen:]
			} else {
				seq = seq[:maxLen]
			}
		}
		if padding == Pre {
			copy(row[maxLen-len(seq):], seq)
		} else {
			copy(row, seq)
		}
		out[i] = row
	}
	return out
}
