package postgres

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskman/internal/taskapi/domain"
)

// demoPassword is shared by all seeded accounts. Development only.
const demoPassword = "password"

type seedUser struct {
	id    string
	name  string
	email string
	tasks []seedTask
}

type seedTask struct {
	id        string
	title     string
	desc      string
	dueInDays int
	completed bool
}

var demoUsers = []seedUser{
	{
		id:    "11111111-1111-4111-8111-111111111111",
		name:  "John Doe",
		email: "john@example.com",
		tasks: []seedTask{
			{id: "aaaaaaa1-0000-4000-8000-000000000001", title: "Book flight to Berlin", desc: "Compare prices first", dueInDays: 7},
			{id: "aaaaaaa1-0000-4000-8000-000000000002", title: "Renew passport", dueInDays: 30},
			{id: "aaaaaaa1-0000-4000-8000-000000000003", title: "Submit expense report", dueInDays: 2, completed: true},
		},
	},
	{
		id:    "22222222-2222-4222-8222-222222222222",
		name:  "Alice Smith",
		email: "alice@example.com",
		tasks: []seedTask{
			{id: "aaaaaaa2-0000-4000-8000-000000000001", title: "Review pull requests", dueInDays: 1},
			{id: "aaaaaaa2-0000-4000-8000-000000000002", title: "Plan team offsite", desc: "Collect venue options", dueInDays: 14},
		},
	},
	{
		id:    "33333333-3333-4333-8333-333333333333",
		name:  "Bob Lee",
		email: "bob@example.com",
		tasks: []seedTask{
			{id: "aaaaaaa3-0000-4000-8000-000000000001", title: "Water the plants", dueInDays: 3},
		},
	},
}

// Seed inserts the demo accounts and their tasks. Existing rows are left
// untouched so the seed is safe to run on every start.
func Seed(ctx context.Context, db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, su := range demoUsers {
			user := userModelFrom(domain.User{
				ID:           su.id,
				Name:         su.name,
				Email:        su.email,
				PasswordHash: string(hash),
				RegisteredAt: now,
				Active:       true,
			})
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", su.email, err)
			}
			for _, st := range su.tasks {
				task := taskModelFrom(domain.Task{
					ID:          st.id,
					OwnerID:     su.id,
					Title:       st.title,
					Description: st.desc,
					DueDate:     now.AddDate(0, 0, st.dueInDays),
					Completed:   st.completed,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&task).Error; err != nil {
					return fmt.Errorf("seed task %s: %w", st.title, err)
				}
			}
		}
		return nil
	})
}
