package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundflow/internal/common"
	"fundflow/internal/model"
)

// CreateCategory creates a new category. Creating a category whose name
// matches an inactive one reactivates it instead.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.createCategoryTx(ctx, s.db, name, description)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, name, description string) (*model.Category, error) {
	// Check if category already exists (including inactive ones)
	var existing model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE name = ?
	`, name).Scan(&existing.ID, &existing.Name, &existing.Description, &existing.IsActive, &existing.CreatedAt)

	if err == nil {
		if !existing.IsActive {
			if _, err := q.ExecContext(ctx, `UPDATE categories SET is_active = 1 WHERE id = ?`, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
			slog.Info("reactivated existing category", "name", name)
		}
		return &existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (name, description, is_active, created_at)
		VALUES (?, ?, 1, ?)
	`, name, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created new category", "name", name, "id", id)

	return &model.Category{
		ID:          id,
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
	}, nil
}

// GetCategoryByID returns an active category by ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, id int64) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE id = ? AND is_active = 1
	`, id)
	return scanCategory(row)
}

// GetCategoryByName returns an active category by name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategoryByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getCategoryByNameTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE name = ? AND is_active = 1
	`, name)
	return scanCategory(row)
}

func scanCategory(row *sql.Row) (*model.Category, error) {
	var cat model.Category
	var description sql.NullString

	err := row.Scan(&cat.ID, &cat.Name, &description, &cat.IsActive, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	cat.Description = description.String
	return &cat, nil
}

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE is_active = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		var description sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Description = description.String
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// AssociateFund adds a fund to a category's admissible source set.
// Associating an already-associated pair is a no-op.
func (s *SQLiteStorage) AssociateFund(ctx context.Context, categoryID, fundID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.associateFundTx(ctx, s.db, categoryID, fundID)
}

func (s *SQLiteStorage) associateFundTx(ctx context.Context, q queryable, categoryID, fundID int64) error {
	catExists, err := s.categoryExistsTx(ctx, q, categoryID)
	if err != nil {
		return err
	}
	if !catExists {
		return fmt.Errorf("category %d: %w", categoryID, common.ErrNotFound)
	}

	fundExists, err := s.fundExistsTx(ctx, q, fundID)
	if err != nil {
		return err
	}
	if !fundExists {
		return fmt.Errorf("fund %d: %w", fundID, common.ErrNotFound)
	}

	_, err = q.ExecContext(ctx, `
		INSERT OR IGNORE INTO category_funds (category_id, fund_id)
		VALUES (?, ?)
	`, categoryID, fundID)
	if err != nil {
		return fmt.Errorf("failed to associate fund with category: %w", err)
	}

	slog.Info("associated fund with category", "category_id", categoryID, "fund_id", fundID)
	return nil
}

// DissociateFund removes a fund from a category's admissible source set.
func (s *SQLiteStorage) DissociateFund(ctx context.Context, categoryID, fundID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.dissociateFundTx(ctx, s.db, categoryID, fundID)
}

func (s *SQLiteStorage) dissociateFundTx(ctx context.Context, q queryable, categoryID, fundID int64) error {
	result, err := q.ExecContext(ctx, `
		DELETE FROM category_funds WHERE category_id = ? AND fund_id = ?
	`, categoryID, fundID)
	if err != nil {
		return fmt.Errorf("failed to dissociate fund from category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// FundsForCategory returns the funds associated with a category, ordered by
// name. An empty result means the category is unrestricted.
func (s *SQLiteStorage) FundsForCategory(ctx context.Context, categoryID int64) ([]model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.fundsForCategoryTx(ctx, s.db, categoryID)
}

func (s *SQLiteStorage) fundsForCategoryTx(ctx context.Context, q queryable, categoryID int64) ([]model.Fund, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT f.id, f.name, f.description, f.initial_balance, f.current_balance, f.is_active, f.created_at
		FROM funds f
		JOIN category_funds cf ON cf.fund_id = f.id
		WHERE cf.category_id = ? AND f.is_active = 1
		ORDER BY f.name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category funds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var funds []model.Fund
	for rows.Next() {
		var fund model.Fund
		var description sql.NullString
		var initialCents, currentCents int64

		if err := rows.Scan(&fund.ID, &fund.Name, &description, &initialCents, &currentCents, &fund.IsActive, &fund.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category fund: %w", err)
		}

		fund.Description = description.String
		fund.InitialBalance = fromCents(initialCents)
		fund.CurrentBalance = fromCents(currentCents)
		funds = append(funds, fund)
	}

	return funds, rows.Err()
}

func (s *SQLiteStorage) categoryExistsTx(ctx context.Context, q queryable, id int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM categories WHERE id = ? AND is_active = 1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category existence: %w", err)
	}
	return exists, nil
}
