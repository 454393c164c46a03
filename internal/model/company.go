package model

import "time"

// Company represents a parking operator owned by a user.  A company
// owns pricing rules and is the root owner of one or more venue trees.
// This struct corresponds to a row in the `companies` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – user ID of the company owner.
//	Name      – display name of the company.
//	CreatedAt – timestamp when the company was created.
//	UpdatedAt – timestamp of last update.
type Company struct {
	ID        uint64    // companies.id
	UserID    uint64    // companies.user_id
	Name      string    // companies.name
	CreatedAt time.Time // companies.created_at
	UpdatedAt time.Time // companies.updated_at
}
