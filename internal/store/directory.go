// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tallyline/autotime/internal/models"
)

// UpsertCustomer adds or renames a customer keyed on (company, domain).
func (s *Store) UpsertCustomer(ctx context.Context, companyID, name, domain string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, company_id, name, domain)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id, domain) DO UPDATE SET name = EXCLUDED.name
	`, uuid.New().String(), companyID, name, strings.ToLower(domain))
	return err
}

// ListCustomers returns a company's customers in insertion order.
func (s *Store) ListCustomers(ctx context.Context, companyID string) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, domain, created_at
		FROM customers
		WHERE company_id = $1
		ORDER BY created_at, id
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Domain, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// AddProject appends a project; position is assigned by the sequence so the
// matcher's tie-break follows insertion order.
func (s *Store) AddProject(ctx context.Context, companyID, name string, keywords []string) error {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, company_id, name, keywords)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), companyID, name, lowered)
	return err
}

// ListProjects returns a company's projects in insertion order.
func (s *Store) ListProjects(ctx context.Context, companyID string) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, keywords, position, created_at
		FROM projects
		WHERE company_id = $1
		ORDER BY position
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Keywords, &p.Position, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
