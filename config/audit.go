package config

import (
	"fmt"
	"os"
	"strings"

	"maintenance_audit/audit"
)

// AuditConfig captures the fixed vocabulary and the alarm policy used by the
// aggregation pipeline. It can be customized under the `audit:` key of
// config.yaml.
type AuditConfig struct {
	Vocabulary   []string          `json:"vocabulary" yaml:"vocabulary"`
	CancelStatus string            `json:"cancel_status" yaml:"cancel_status"`
	Prefilter    bool              `json:"prefilter" yaml:"prefilter"`
	AlarmTier    string            `json:"alarm_tier" yaml:"alarm_tier"`
	TabTiers     []string          `json:"tab_tiers" yaml:"tab_tiers"`
	MonthAliases map[string]string `json:"month_aliases" yaml:"month_aliases"`
	Columns      ColumnMap         `json:"columns" yaml:"columns"`
}

// ColumnMap names the spreadsheet header of every logical record field.
type ColumnMap struct {
	Site       string `json:"site" yaml:"site"`
	Specialty  string `json:"specialty" yaml:"specialty"`
	Priority   string `json:"priority" yaml:"priority"`
	Contractor string `json:"contractor" yaml:"contractor"`
	OfficeUnit string `json:"office_unit" yaml:"office_unit"`
	Status     string `json:"status" yaml:"status"`
	Month      string `json:"month" yaml:"month"`
}

type auditFileConfig struct {
	Vocabulary   []string          `json:"vocabulary" yaml:"vocabulary"`
	CancelStatus string            `json:"cancel_status" yaml:"cancel_status"`
	Prefilter    *bool             `json:"prefilter" yaml:"prefilter"`
	AlarmTier    string            `json:"alarm_tier" yaml:"alarm_tier"`
	TabTiers     []string          `json:"tab_tiers" yaml:"tab_tiers"`
	MonthAliases map[string]string `json:"month_aliases" yaml:"month_aliases"`
	Columns      ColumnMap         `json:"columns" yaml:"columns"`
}

var defaultVocabulary = []string{
	"AA", "GE-TTA-TK", "IE", "SE-LT", "REC-BB", "TX", "TX-BH",
	"UPS", "INV-AVR", "LT", "RADIO", "SOL-EOL", "#N/D", "0",
}

// DefaultColumns returns the headers of the preventive maintenance workbook.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Site:       "Site Id Name",
		Specialty:  "SUB_ESPECIALIDAD",
		Priority:   "Site Priority",
		Contractor: "Contratista Sitio",
		OfficeUnit: "SUP_FLM_2",
		Status:     "ESTADO",
		Month:      "2_MES_PROGRA",
	}
}

// DefaultAuditConfig returns the baked-in vocabulary and alarm policy.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Vocabulary:   append([]string{}, defaultVocabulary...),
		CancelStatus: "Cancelado",
		AlarmTier:    "P_1",
		Columns:      DefaultColumns(),
	}
}

// Options converts the configuration into pipeline options.
func (a AuditConfig) Options() audit.Options {
	return audit.Options{
		Vocabulary:   audit.Vocabulary(append([]string{}, a.Vocabulary...)),
		MonthTable:   audit.DefaultMonthTable().With(a.MonthAliases),
		CancelStatus: a.CancelStatus,
		Prefilter:    a.Prefilter,
		AlarmTier:    a.AlarmTier,
		TabTiers:     append([]string{}, a.TabTiers...),
	}
}

func applyAuditOverrides(base AuditConfig, override auditFileConfig) AuditConfig {
	if vocab := cleanList(override.Vocabulary); len(vocab) > 0 {
		base.Vocabulary = vocab
	}
	if v := strings.TrimSpace(override.CancelStatus); v != "" {
		base.CancelStatus = v
	}
	if override.Prefilter != nil {
		base.Prefilter = *override.Prefilter
	}
	if v := strings.TrimSpace(override.AlarmTier); v != "" {
		base.AlarmTier = v
	}
	if tiers := cleanList(override.TabTiers); len(tiers) > 0 {
		base.TabTiers = tiers
	}
	if len(override.MonthAliases) > 0 {
		base.MonthAliases = override.MonthAliases
	}
	base.Columns = base.Columns.merge(override.Columns)
	return base
}

func applyAuditEnv(a *AuditConfig) {
	if v := strings.TrimSpace(os.Getenv("AUDIT_CANCEL_STATUS")); v != "" {
		a.CancelStatus = v
	}
	if v := strings.TrimSpace(os.Getenv("AUDIT_ALARM_TIER")); v != "" {
		a.AlarmTier = v
	}
	if strings.TrimSpace(os.Getenv("AUDIT_PREFILTER")) != "" {
		a.Prefilter = parseBoolEnv("AUDIT_PREFILTER")
	}
	if vocab := parseListEnv("AUDIT_VOCABULARY"); len(vocab) > 0 {
		a.Vocabulary = vocab
	}
	if tiers := parseListEnv("AUDIT_TAB_TIERS"); len(tiers) > 0 {
		a.TabTiers = tiers
	}
}

func (c ColumnMap) merge(o ColumnMap) ColumnMap {
	c.Site = firstNonEmpty(strings.TrimSpace(o.Site), c.Site)
	c.Specialty = firstNonEmpty(strings.TrimSpace(o.Specialty), c.Specialty)
	c.Priority = firstNonEmpty(strings.TrimSpace(o.Priority), c.Priority)
	c.Contractor = firstNonEmpty(strings.TrimSpace(o.Contractor), c.Contractor)
	c.OfficeUnit = firstNonEmpty(strings.TrimSpace(o.OfficeUnit), c.OfficeUnit)
	c.Status = firstNonEmpty(strings.TrimSpace(o.Status), c.Status)
	c.Month = firstNonEmpty(strings.TrimSpace(o.Month), c.Month)
	return c
}

func (c ColumnMap) validate() error {
	seen := make(map[string]string)
	for field, header := range map[string]string{
		"site": c.Site, "specialty": c.Specialty, "priority": c.Priority,
		"contractor": c.Contractor, "office_unit": c.OfficeUnit, "status": c.Status, "month": c.Month,
	} {
		if strings.TrimSpace(header) == "" {
			return fmt.Errorf("audit.columns.%s is required", field)
		}
		if other, ok := seen[header]; ok {
			return fmt.Errorf("audit.columns.%s and audit.columns.%s share header %q", field, other, header)
		}
		seen[header] = field
	}
	return nil
}

// cleanList trims entries and drops empty ones, keeping "0" and "#N/D" which
// are real vocabulary entries of the source workbook.
func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
