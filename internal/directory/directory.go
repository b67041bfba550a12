// internal/directory/directory.go
//
// Session-lifetime snapshot of the department and employee reference
// collections. Both are loaded once at startup; there is no refresh or
// invalidation — a reassignment made elsewhere mid-shift will not show up
// until the next session, which is accepted.

package directory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tojem/floorscan/internal/job"
)

// Cache holds the loaded reference data, read-only after Load.
type Cache struct {
	departments []job.Department
	employees   []job.Employee
	byID        map[string]job.Employee
}

// Load fetches both collections. Either fetch failing fails the whole load;
// there is no partial or degraded mode.
func Load(ctx context.Context, src job.DirectorySource) (*Cache, error) {
	departments, err := src.Departments(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: load departments: %w", err)
	}
	employees, err := src.Employees(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: load employees: %w", err)
	}
	byID := make(map[string]job.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	return &Cache{departments: departments, employees: employees, byID: byID}, nil
}

// Departments returns the department collection in load order.
func (c *Cache) Departments() []job.Department {
	return c.departments
}

// EmployeesByDepartment returns employees scoped to one department,
// sorted by name for stable pick lists.
func (c *Cache) EmployeesByDepartment(departmentID string) []job.Employee {
	var out []job.Employee
	for _, e := range c.employees {
		if e.DepartmentID == departmentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EmployeeByID resolves an employee for display-name lookup during
// assignment.
func (c *Cache) EmployeeByID(id string) (job.Employee, bool) {
	e, ok := c.byID[id]
	return e, ok
}
