package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"lrpsolve/internal/lrp"
	"lrpsolve/internal/model"
)

// ReadSolution returns the distinct open-depot ids of a solution file in
// ascending order. Only OpenDepots is consumed.
func ReadSolution(path string) ([]int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read solution %q: %w", path, lrp.ErrInputNotFound)
		}
		return nil, fmt.Errorf("read solution %q: %w", path, err)
	}
	var f model.SolutionFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode solution %q: %w: %v", path, lrp.ErrInputMalformed, err)
	}
	return OpenDepotSet(f.OpenDepots)
}

// OpenDepotSet collapses duplicate ids and sorts them.
func OpenDepotSet(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no open depots: %w", lrp.ErrInputMalformed)
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			return nil, fmt.Errorf("negative depot id %d: %w", id, lrp.ErrInputMalformed)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out, nil
}
