package compliance

import (
	"testing"
	"time"

	"compliance/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodValidate(t *testing.T) {
	require.NoError(t, Period{Year: 2024, Month: time.March}.Validate())

	var verr *ValidationError
	require.ErrorAs(t, Period{Year: 1999, Month: time.March}.Validate(), &verr)
	assert.Equal(t, "year", verr.Field)
	require.ErrorAs(t, Period{Year: 2024, Month: 0}.Validate(), &verr)
	assert.Equal(t, "month", verr.Field)
	require.ErrorAs(t, Period{Year: 2024, Month: 13}.Validate(), &verr)
	assert.Equal(t, "month", verr.Field)

	assert.Equal(t, "2024-03", Period{Year: 2024, Month: time.March}.String())
}

func TestNewCatalogRejectsBadTables(t *testing.T) {
	_, err := NewCatalog([]model.DocumentType{
		{ID: "a", MandatoryClass: model.MandatoryMonthly},
		{ID: "a", MandatoryClass: model.MandatoryMonthly},
	}, DefaultRules())
	assert.Error(t, err)

	_, err = NewCatalog([]model.DocumentType{{ID: "", DisplayName: "x", MandatoryClass: model.MandatoryMonthly}}, DefaultRules())
	assert.Error(t, err)

	_, err = NewCatalog([]model.DocumentType{{ID: "q", MandatoryClass: "quarterly"}}, DefaultRules())
	assert.Error(t, err)
}

func TestDefaultCatalogRequired(t *testing.T) {
	c := DefaultCatalog()

	feb := c.Required(Period{Year: 2024, Month: time.February})
	assert.Len(t, feb, 9)
	assert.NotContains(t, feb, "bonus_register")
	assert.NotContains(t, feb, "contract_labour_license")

	jan := c.Required(Period{Year: 2024, Month: time.January})
	assert.Len(t, jan, 11)
	assert.Contains(t, jan, "bonus_register")
	assert.Contains(t, jan, "labour_welfare_fund")
	assert.IsIncreasing(t, jan)
}

func TestExcludedFromScoring(t *testing.T) {
	excluded := DefaultCatalog().ExcludedFromScoring()
	assert.Equal(t, map[string]bool{
		"contract_labour_license":  true,
		"registration_certificate": true,
	}, excluded)
}

func TestCatalogLookupAndTypesCopy(t *testing.T) {
	c := DefaultCatalog()

	dt, ok := c.Lookup("pf_ecr")
	require.True(t, ok)
	assert.Equal(t, model.MandatoryMonthly, dt.MandatoryClass)

	_, ok = c.Lookup("unknown")
	assert.False(t, ok)

	types := c.Types()
	types[0].ID = "mutated"
	_, ok = c.Lookup("payroll_register")
	assert.True(t, ok)
	assert.Equal(t, "payroll_register", c.Types()[0].ID)
}

func TestCustomPeriodRule(t *testing.T) {
	rules := DefaultRules()
	rules["quarterly"] = func(p Period) bool { return p.Month%3 == 0 }
	c, err := NewCatalog([]model.DocumentType{
		{ID: "payroll_register", MandatoryClass: model.MandatoryMonthly},
		{ID: "quarterly_return", MandatoryClass: "quarterly"},
	}, rules)
	require.NoError(t, err)

	missing := c.MissingMandatoryTypes(Period{Year: 2024, Month: time.June}, map[string]bool{})
	assert.Equal(t, []string{"payroll_register"}, missing.Monthly)
	assert.Equal(t, []string{"quarterly_return"}, missing.Other)

	missing = c.MissingMandatoryTypes(Period{Year: 2024, Month: time.May}, map[string]bool{})
	assert.Empty(t, missing.Other)
}
