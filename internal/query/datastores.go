package query

import (
	"fmt"
	"sort"

	"github.com/vmware/govmomi/vim25/mo"

	"github.com/vctools/vctools/internal/output"
)

// DatastoreRows renders datastore capacity rows under a header, sorted by
// datastore name. Provisioned space counts thin allocations that are not
// yet committed.
func DatastoreRows(stores []mo.Datastore) [][]string {
	sorted := make([]mo.Datastore, len(stores))
	copy(sorted, stores)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Summary.Name < sorted[j].Summary.Name
	})

	rows := [][]string{{"Datastore", "Capacity", "Provisioned", "Pct", "Free Space", "Pct"}}
	for _, store := range sorted {
		s := store.Summary
		provisioned := (s.Capacity - s.FreeSpace) + s.Uncommitted
		rows = append(rows, []string{
			s.Name,
			output.HumanSize(s.Capacity),
			output.HumanSize(provisioned),
			percent(provisioned, s.Capacity),
			output.HumanSize(s.FreeSpace),
			percent(s.FreeSpace, s.Capacity),
		})
	}
	return rows
}

// percent renders part over whole with two decimals.
func percent(part, whole int64) string {
	if whole == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(whole)*100)
}
