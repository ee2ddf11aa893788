package cart

// SyncState tracks where the authoritative cart lives.
type SyncState string

const (
	StateGuest         SyncState = "guest"
	StateSyncing       SyncState = "syncing"
	StateAuthenticated SyncState = "authenticated"
)

// Merge folds a guest cart into a backend cart at login. The rule is
// deterministic and additive: a guest line whose key matches a backend line
// adds its quantity to the backend line (never overwrites), and guest-only
// lines are appended unchanged. Summing instead of comparing is what makes
// conflict resolution unnecessary.
func Merge(backend, guest Lines) Lines {
	merged := backend.Clone()
	for _, guestLine := range guest {
		key := guestLine.Key()
		if i := merged.indexOf(key); i >= 0 {
			merged[i].Quantity += guestLine.Quantity
			continue
		}
		merged = append(merged, guestLine)
	}
	return merged
}
