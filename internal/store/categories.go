package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxCategoryNameLen caps user-entered category names.
const MaxCategoryNameLen = 50

const categoryColumns = `id, name, parent_id, color, icon, sort_order, is_default, created_at`

// validateCategory enforces the two-level tree: a parent must exist and must
// itself be a root category. Nothing deeper is modeled.
func (s *Store) validateCategory(c *Category) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("category name must not be empty")
	}
	if len(name) > MaxCategoryNameLen {
		return fmt.Errorf("category name exceeds %d characters", MaxCategoryNameLen)
	}
	if c.ParentID != nil {
		if *c.ParentID == c.ID && c.ID != 0 {
			return errors.New("category cannot be its own parent")
		}
		parent, err := s.GetCategory(*c.ParentID)
		if err != nil {
			return fmt.Errorf("parent category: %w", err)
		}
		if !parent.Root() {
			return fmt.Errorf("category %q is a subcategory and cannot have children", parent.Name)
		}
	}
	return nil
}

func (s *Store) CreateCategory(c Category) (*Category, error) {
	if err := s.validateCategory(&c); err != nil {
		return nil, fmt.Errorf("validate category: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO categories (name, parent_id, color, icon, sort_order, is_default)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(c.Name), c.ParentID, c.Color, c.Icon, c.SortOrder, boolInt(c.IsDefault),
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCategory(id)
}

func (s *Store) GetCategory(id int64) (*Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// ListCategories returns all categories ordered so that each root precedes
// its subcategories.
func (s *Store) ListCategories() ([]Category, error) {
	rows, err := s.db.Query(
		`SELECT ` + categoryColumns + ` FROM categories
		 ORDER BY COALESCE(parent_id, id), parent_id IS NOT NULL, sort_order, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

// Subcategories returns the direct children of a root category.
func (s *Store) Subcategories(parentID int64) ([]Category, error) {
	rows, err := s.db.Query(
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = ? ORDER BY sort_order, id`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("subcategories of %d: %w", parentID, err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

func (s *Store) UpdateCategory(c Category) error {
	if err := s.validateCategory(&c); err != nil {
		return fmt.Errorf("validate category: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE categories SET name = ?, parent_id = ?, color = ?, icon = ?, sort_order = ? WHERE id = ?`,
		strings.TrimSpace(c.Name), c.ParentID, c.Color, c.Icon, c.SortOrder, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update category %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category; subcategories and task links cascade.
func (s *Store) DeleteCategory(id int64) error {
	res, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanCategory(r rowScanner) (*Category, error) {
	c := &Category{}
	var (
		parentID  sql.NullInt64
		isDefault int
		createdAt string
	)
	if err := r.Scan(&c.ID, &c.Name, &parentID, &c.Color, &c.Icon, &c.SortOrder, &isDefault, &createdAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	c.IsDefault = isDefault == 1
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}
