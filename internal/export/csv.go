package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tasker/internal/store"
)

// ToCSV writes the task list as a flat spreadsheet-friendly file. Category
// ids resolve to names through the given lookup.
func ToCSV(tasks []store.Task, categories map[int64]store.Category, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{
		"ID", "Title", "Description", "Categories", "Priority", "Completed",
		"Due Date", "Due Time", "Estimated (min)", "Actual (min)", "Repeat", "Created",
	}); err != nil {
		return err
	}

	for _, t := range tasks {
		var names []string
		for _, cid := range t.CategoryIDs {
			if c, ok := categories[cid]; ok {
				names = append(names, c.Name)
			}
		}

		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Description,
			strings.Join(names, "; "),
			string(t.Priority),
			strconv.FormatBool(t.Completed),
			formatDatePtr(t.DueDate),
			formatStrPtr(t.DueTime),
			formatIntPtr(t.EstimatedMinutes),
			formatIntPtr(t.ActualMinutes),
			string(t.Repeat.Type),
			t.CreatedAt.Local().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDatePtr(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(time.DateOnly)
}

func formatStrPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatIntPtr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
