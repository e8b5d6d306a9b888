package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/store"
)

var categoryColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type categoriesModel struct {
	store  *store.Store
	width  int
	height int

	// Flattened two-level tree: each root followed by its subcategories.
	rows   []store.Category
	counts map[int64]int // tasks per category
	cursor int

	formActive bool
	form       *huh.Form
	editingID  int64

	formName   *string
	formColor  *string
	formParent *int64 // 0 = root
}

func newCategoriesModel(s *store.Store) categoriesModel {
	name, color := "", categoryColors[0]
	parent := int64(0)
	return categoriesModel{
		store:      s,
		counts:     make(map[int64]int),
		formName:   &name,
		formColor:  &color,
		formParent: &parent,
	}
}

func (c *categoriesModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type categoriesDataMsg struct {
	rows   []store.Category
	counts map[int64]int
}

func (c categoriesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		cats, _ := c.store.ListCategories()

		// Roots first, each followed by its children.
		var rows []store.Category
		for _, root := range cats {
			if !root.Root() {
				continue
			}
			rows = append(rows, root)
			for _, sub := range cats {
				if sub.ParentID != nil && *sub.ParentID == root.ID {
					rows = append(rows, sub)
				}
			}
		}

		counts := make(map[int64]int)
		tasks, _ := c.store.ListTasks(store.TaskFilter{})
		for _, t := range tasks {
			for _, cid := range t.CategoryIDs {
				counts[cid]++
			}
		}

		return categoriesDataMsg{rows: rows, counts: counts}
	}
}

func (c categoriesModel) update(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case categoriesDataMsg:
		c.rows = msg.rows
		c.counts = msg.counts
		if c.cursor >= len(c.rows) {
			c.cursor = max(0, len(c.rows)-1)
		}
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.rows)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.New):
			return c.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(c.rows) > 0 {
				cat := c.rows[c.cursor]
				return c.showForm(&cat)
			}
		case key.Matches(msg, keys.Delete):
			if len(c.rows) > 0 {
				if err := c.store.DeleteCategory(c.rows[c.cursor].ID); err != nil {
					return c, errStatus(err)
				}
				return c, c.refresh()
			}
		}
	}
	return c, nil
}

func (c categoriesModel) showForm(cat *store.Category) (categoriesModel, tea.Cmd) {
	if cat == nil {
		*c.formName = ""
		*c.formColor = categoryColors[0]
		*c.formParent = 0
		c.editingID = 0
	} else {
		*c.formName = cat.Name
		*c.formColor = cat.Color
		*c.formParent = 0
		if cat.ParentID != nil {
			*c.formParent = *cat.ParentID
		}
		c.editingID = cat.ID
	}

	colorOptions := make([]huh.Option[string], len(categoryColors))
	for i, col := range categoryColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", col), col)
	}

	// Only roots can be parents; the tree is two levels deep.
	parentOptions := []huh.Option[int64]{huh.NewOption("(top level)", int64(0))}
	for _, r := range c.rows {
		if r.Root() && r.ID != c.editingID {
			parentOptions = append(parentOptions, huh.NewOption(r.Name, r.ID))
		}
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(c.formName),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(c.formColor),
			huh.NewSelect[int64]().Title("Parent").Options(parentOptions...).Value(c.formParent),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c categoriesModel) updateForm(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		cat := store.Category{
			ID:    c.editingID,
			Name:  *c.formName,
			Color: *c.formColor,
		}
		if *c.formParent != 0 {
			parent := *c.formParent
			cat.ParentID = &parent
		}

		var err error
		if c.editingID == 0 {
			_, err = c.store.CreateCategory(cat)
		} else {
			err = c.store.UpdateCategory(cat)
		}
		if err != nil {
			return c, errStatus(err)
		}
		return c, c.refresh()
	}

	return c, cmd
}

func (c categoriesModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		title := titleStyle.Render("New Category")
		if c.editingID != 0 {
			title = titleStyle.Render("Edit Category")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Categories")
	if len(c.rows) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No categories. Press n to create one."))
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")

	for i, cat := range c.rows {
		cursor, style := "  ", normalItemStyle
		if i == c.cursor {
			cursor, style = "> ", selectedItemStyle
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(cat.Color)).Render("●")
		indent := ""
		if !cat.Root() {
			indent = "    "
		}
		count := mutedStyle.Render(fmt.Sprintf("  %d tasks", c.counts[cat.ID]))
		rows = append(rows, fmt.Sprintf("%s%s%s %s%s", cursor, indent, dot, style.Render(cat.Name), count))
	}

	rows = append(rows, "", mutedStyle.Render("  n: new  e: edit  d: delete (removes subcategories)"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
