package compliance

import (
	"fmt"
	"sort"
	"time"

	"compliance/internal/model"
)

// Period is a reporting period.
type Period struct {
	Year  int
	Month time.Month
}

// Validate rejects periods outside year 2000+ and months 1..12.
func (p Period) Validate() error {
	if p.Year < 2000 {
		return validationErr("year", fmt.Sprintf("must be 2000 or later, got %d", p.Year))
	}
	if p.Month < time.January || p.Month > time.December {
		return validationErr("month", fmt.Sprintf("must be between 1 and 12, got %d", int(p.Month)))
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PeriodRule reports whether a mandatory class is required in the given period.
type PeriodRule func(Period) bool

// DefaultRules maps each built-in mandatory class to its period rule.
func DefaultRules() map[model.MandatoryClass]PeriodRule {
	return map[model.MandatoryClass]PeriodRule{
		model.MandatoryMonthly:           func(Period) bool { return true },
		model.MandatoryAnnualJanuaryOnly: func(p Period) bool { return p.Month == time.January },
		model.MandatoryOptional:          func(Period) bool { return false },
	}
}

// Catalog is the static document type table plus the period rule of every mandatory class.
// It is built once at process start and only read afterwards.
type Catalog struct {
	types []model.DocumentType
	byID  map[string]model.DocumentType
	rules map[model.MandatoryClass]PeriodRule
}

// NewCatalog validates the table. Every type needs a unique ID and a class with a rule.
func NewCatalog(types []model.DocumentType, rules map[model.MandatoryClass]PeriodRule) (*Catalog, error) {
	c := &Catalog{
		types: make([]model.DocumentType, 0, len(types)),
		byID:  make(map[string]model.DocumentType, len(types)),
		rules: make(map[model.MandatoryClass]PeriodRule, len(rules)),
	}
	for class, rule := range rules {
		c.rules[class] = rule
	}
	for _, t := range types {
		if t.ID == "" {
			return nil, fmt.Errorf("document type %q has empty id", t.DisplayName)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate document type id %q", t.ID)
		}
		if _, ok := c.rules[t.MandatoryClass]; !ok {
			return nil, fmt.Errorf("document type %q: no period rule for class %q", t.ID, t.MandatoryClass)
		}
		c.types = append(c.types, t)
		c.byID[t.ID] = t
	}
	return c, nil
}

// Lookup returns the document type with the given ID.
func (c *Catalog) Lookup(id string) (model.DocumentType, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Types returns a copy of the table in declaration order.
func (c *Catalog) Types() []model.DocumentType {
	out := make([]model.DocumentType, len(c.types))
	copy(out, c.types)
	return out
}

// Required returns the IDs of every type required in period, sorted.
func (c *Catalog) Required(period Period) []string {
	var ids []string
	for _, t := range c.types {
		if c.rules[t.MandatoryClass](period) {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ExcludedFromScoring returns the set of type IDs flagged as not counting toward compliance.
func (c *Catalog) ExcludedFromScoring() map[string]bool {
	out := make(map[string]bool)
	for _, t := range c.types {
		if t.ExcludedFromScoring {
			out[t.ID] = true
		}
	}
	return out
}

// DefaultDocumentTypes is the vendor compliance table used when no other table is configured.
func DefaultDocumentTypes() []model.DocumentType {
	return []model.DocumentType{
		{ID: "payroll_register", DisplayName: "Payroll Register", MandatoryClass: model.MandatoryMonthly},
		{ID: "payslips", DisplayName: "Employee Payslips", MandatoryClass: model.MandatoryMonthly},
		{ID: "attendance_register", DisplayName: "Attendance Register", MandatoryClass: model.MandatoryMonthly},
		{ID: "pf_challan", DisplayName: "Provident Fund Challan", MandatoryClass: model.MandatoryMonthly},
		{ID: "pf_ecr", DisplayName: "Provident Fund ECR", MandatoryClass: model.MandatoryMonthly},
		{ID: "esi_challan", DisplayName: "ESI Challan", MandatoryClass: model.MandatoryMonthly},
		{ID: "esi_contribution", DisplayName: "ESI Contribution Statement", MandatoryClass: model.MandatoryMonthly},
		{ID: "bank_statement", DisplayName: "Salary Bank Statement", MandatoryClass: model.MandatoryMonthly},
		{ID: "professional_tax", DisplayName: "Professional Tax Receipt", MandatoryClass: model.MandatoryMonthly},
		{ID: "bonus_register", DisplayName: "Annual Bonus Register", MandatoryClass: model.MandatoryAnnualJanuaryOnly},
		{ID: "labour_welfare_fund", DisplayName: "Labour Welfare Fund Receipt", MandatoryClass: model.MandatoryAnnualJanuaryOnly},
		{ID: "contract_labour_license", DisplayName: "Contract Labour License", MandatoryClass: model.MandatoryOptional, ExcludedFromScoring: true},
		{ID: "registration_certificate", DisplayName: "Registration Certificate", MandatoryClass: model.MandatoryOptional, ExcludedFromScoring: true},
		{ID: "insurance_policy", DisplayName: "Workmen Compensation Policy", MandatoryClass: model.MandatoryOptional},
	}
}

// DefaultCatalog builds the catalog from DefaultDocumentTypes and DefaultRules.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDocumentTypes(), DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}
