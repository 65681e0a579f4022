package vault

import (
	"fmt"
)

// MergeOutcome is what Merge did with one entry of the source vault
type MergeOutcome int

const (
	// Added means the entry was missing in the target and was copied
	Added MergeOutcome = iota
	// IsNewer means the target has the entry and the source copy is newer.
	// The target is not changed.
	IsNewer
	// IsOlder means the target has the entry and the source copy is not newer
	IsOlder
	// Failed means the entry could not be read or written
	Failed
)

func (o MergeOutcome) String() string {
	switch o {
	case Added:
		return "added"
	case IsNewer:
		return "newer"
	case IsOlder:
		return "older"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("MergeOutcome(%d)", int(o))
	}
}

// MergeResult reports the outcome for one entry name
type MergeResult struct {
	Name    string
	Outcome MergeOutcome
	Err     error
}

// Merge copies entries of from that are missing in into, keeping their
// timestamps. Entries present in both are reported by relative age and left
// alone, or as Failed when the copy in into cannot be decrypted. Results are in name order. Per-entry failures are reported in the
// results; the returned error is only for a closed vault.
func Merge(into, from *Vault) ([]MergeResult, error) {
	if err := into.check(); err != nil {
		return nil, err
	}
	if err := from.check(); err != nil {
		return nil, err
	}

	names := from.index.names()
	results := make([]MergeResult, 0, len(names))
	for _, name := range names {
		src := from.index.Entries[name]
		res := MergeResult{Name: name}

		if dst, exists := into.index.Entries[name]; exists {
			res.Outcome = IsOlder
			if src.Updated.After(dst.Updated) {
				res.Outcome = IsNewer
			}
			// an entry that is present but unreadable is a failure, not a conflict
			plain, err := into.Get(name)
			if err != nil {
				res.Outcome = Failed
				res.Err = err
			} else {
				plain.Destroy()
			}
			results = append(results, res)
			continue
		}

		plain, err := from.Get(name)
		if err == nil {
			err = into.put(name, plain.Bytes(), src.Created, src.Updated)
			plain.Destroy()
		}
		if err != nil {
			res.Outcome = Failed
			res.Err = err
		}
		results = append(results, res)
	}

	into.log.WithField("entries", len(results)).Debug("vaults merged")
	return results, nil
}
