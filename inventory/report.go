package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lab_inventory/models"
)

const (
	lowStockRatio     = 0.2
	recentActivityLen = 5
	mostActiveLen     = 3
)

type LowStockItem struct {
	Name      string `json:"name"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}

type Activity struct {
	ItemName string `json:"itemName"`
	UserName string `json:"userName"`
	Action   string `json:"action"`
	Quantity int    `json:"quantity"`
}

type ActiveItem struct {
	Name        string `json:"name"`
	BorrowCount int    `json:"borrowCount"`
}

// StatusReport is a briefing derived from a read-only snapshot.
type StatusReport struct {
	Overview        string         `json:"overview"`
	LowStockItems   []LowStockItem `json:"lowStockItems"`
	RecentActivity  []Activity     `json:"recentActivity"`
	MostActiveItems []ActiveItem   `json:"mostActiveItems"`
	Conclusion      string         `json:"conclusion"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}

func (e *Engine) StatusReport(ctx context.Context) (*StatusReport, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return BuildStatusReport(snap, e.now()), nil
}

// BuildStatusReport never mutates snap.
func BuildStatusReport(snap *models.Snapshot, now time.Time) *StatusReport {
	items := make(map[string]models.Item, len(snap.Items))
	for _, it := range snap.Items {
		items[it.ID] = it
	}
	users := make(map[string]models.User, len(snap.Users))
	for _, u := range snap.Users {
		users[u.ID] = u
	}

	r := &StatusReport{
		LowStockItems:   []LowStockItem{},
		RecentActivity:  []Activity{},
		MostActiveItems: []ActiveItem{},
		GeneratedAt:     now,
	}

	var units, onLoan int
	for _, it := range snap.Items {
		units += it.TotalQuantity
		onLoan += it.BorrowedQuantity()
		if it.TotalQuantity > 0 && float64(it.AvailableQuantity) < lowStockRatio*float64(it.TotalQuantity) {
			r.LowStockItems = append(r.LowStockItems, LowStockItem{Name: it.Name, Available: it.AvailableQuantity, Total: it.TotalQuantity})
		}
	}

	logs := append([]models.Log(nil), snap.Logs...)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })

	borrows := map[string]int{}
	pending := 0
	for _, l := range logs {
		if l.Action == models.ActionBorrow {
			borrows[l.ItemID]++
			if l.Status == models.LogPending {
				pending++
			}
		}
	}
	for _, l := range logs {
		if len(r.RecentActivity) == recentActivityLen {
			break
		}
		action := "Borrowed"
		if l.Action == models.ActionReturn {
			action = "Returned"
		}
		r.RecentActivity = append(r.RecentActivity, Activity{
			ItemName: nameOr(items[l.ItemID].Name, "Unknown item"),
			UserName: nameOr(users[l.UserID].FullName, "Unknown user"),
			Action:   action,
			Quantity: l.Quantity,
		})
	}

	for id, n := range borrows {
		r.MostActiveItems = append(r.MostActiveItems, ActiveItem{Name: nameOr(items[id].Name, "Unknown item"), BorrowCount: n})
	}
	sort.Slice(r.MostActiveItems, func(i, j int) bool {
		a, b := r.MostActiveItems[i], r.MostActiveItems[j]
		if a.BorrowCount != b.BorrowCount {
			return a.BorrowCount > b.BorrowCount
		}
		return a.Name < b.Name
	})
	if len(r.MostActiveItems) > mostActiveLen {
		r.MostActiveItems = r.MostActiveItems[:mostActiveLen]
	}

	r.Overview = fmt.Sprintf("The lab tracks %d items (%d units), %d units are currently on loan and %d borrow requests are pending.",
		len(snap.Items), units, onLoan, pending)

	var notes []string
	if n := len(r.LowStockItems); n > 0 {
		notes = append(notes, fmt.Sprintf("restock %d low-stock item(s)", n))
	}
	if pending > 0 {
		notes = append(notes, fmt.Sprintf("review %d pending borrow request(s)", pending))
	}
	if len(notes) == 0 {
		r.Conclusion = "Stock levels are healthy and no requests are waiting."
	} else {
		r.Conclusion = "Next steps: " + strings.Join(notes, " and ") + "."
	}
	return r
}

func nameOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
