package api

import (
	"errors"
	"fmt"

	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// Tables names the fixed tables each endpoint reads.
type Tables struct {
	Permissions PermissionsTable `yaml:"permissions"`
	Employees   EmployeesTable   `yaml:"employees"`
	History     HistoryTable     `yaml:"history"`
}

// PermissionsTable is the team permission table keyed by record id.
type PermissionsTable struct {
	Name     string `yaml:"name"`
	IDColumn string `yaml:"id_column"`
}

// EmployeesTable is the employee table keyed by subject identifier.
type EmployeesTable struct {
	Name          string `yaml:"name"`
	SubjectColumn string `yaml:"subject_column"`
}

// HistoryTable is the per-subject history table.
type HistoryTable struct {
	Name          string `yaml:"name"`
	SubjectColumn string `yaml:"subject_column"`
	OrderColumn   string `yaml:"order_column"`
}

// DefaultTables returns the production table layout.
func DefaultTables() Tables {
	return Tables{
		Permissions: PermissionsTable{Name: "hive.bronze.compass_team_permission", IDColumn: "id"},
		Employees:   EmployeesTable{Name: "hive.silver.crm_crm_plus_dim_emp_info", SubjectColumn: "global_uid"},
		History: HistoryTable{
			Name:          "hive.silver.crm_crm_plus_dim_adage_history",
			SubjectColumn: "bnpp_uid",
			OrderColumn:   "valid_from",
		},
	}
}

// WithDefaults fills empty fields from DefaultTables.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.Permissions.Name, d.Permissions.Name)
	fill(&t.Permissions.IDColumn, d.Permissions.IDColumn)
	fill(&t.Employees.Name, d.Employees.Name)
	fill(&t.Employees.SubjectColumn, d.Employees.SubjectColumn)
	fill(&t.History.Name, d.History.Name)
	fill(&t.History.SubjectColumn, d.History.SubjectColumn)
	fill(&t.History.OrderColumn, d.History.OrderColumn)
	return t
}

// Validate checks every table and column name against the identifier
// whitelists.
func (t Tables) Validate() error {
	var errs []error
	check := func(field, v string, p sqlsafe.Pattern) {
		if _, err := sqlsafe.Validate(v, p); err != nil {
			errs = append(errs, fmt.Errorf("tables.%s: %w", field, err))
		}
	}
	check("permissions.name", t.Permissions.Name, sqlsafe.TableName)
	check("permissions.id_column", t.Permissions.IDColumn, sqlsafe.ColumnName)
	check("employees.name", t.Employees.Name, sqlsafe.TableName)
	check("employees.subject_column", t.Employees.SubjectColumn, sqlsafe.ColumnName)
	check("history.name", t.History.Name, sqlsafe.TableName)
	check("history.subject_column", t.History.SubjectColumn, sqlsafe.ColumnName)
	check("history.order_column", t.History.OrderColumn, sqlsafe.ColumnName)
	return errors.Join(errs...)
}
