// Package schema holds the per-entity descriptors that drive the generic
// CRUD engine, the CSV import pipeline and the exporters. Each Entity lists
// its columns, the natural key used for CSV cross-referencing and the
// admission policy applied during bulk import.
package schema

// FieldKind classifies a column for parsing and scanning.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindDecimal
	KindEnum
	KindInt
	KindRef
)

// Ref describes a foreign-key column. KeyColumn is the natural-key column on
// the referenced table that import data uses instead of the surrogate id.
type Ref struct {
	Kind      string
	Table     string
	IDColumn  string
	KeyColumn string
	// ByID allows a raw surrogate id in import data as an alternative to the
	// natural key. Asset references accept either form.
	ByID bool
}

// Column describes one database column of an entity.
type Column struct {
	Name     string // database column
	Header   string // CSV header when it differs from Name (ref columns)
	Kind     FieldKind
	Required bool
	Enum     []string
	Default  string // applied when an enum column is absent on create
	Ref      *Ref
}

// CSVHeader returns the header under which this column travels in CSV files.
func (c Column) CSVHeader() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Name
}

// InEnum reports whether v is a declared member of the column's enum set.
func (c Column) InEnum(v string) bool {
	for _, e := range c.Enum {
		if e == v {
			return true
		}
	}
	return false
}

// Policy is the per-entity admission rule applied to imported rows.
type Policy int

const (
	// PolicyReferenceRequired skips rows whose referenced entities cannot be
	// resolved or whose required dates fail to parse.
	PolicyReferenceRequired Policy = iota
	// PolicyDedupNaturalKey skips rows whose natural key already exists.
	PolicyDedupNaturalKey
	// PolicyUnconditionalInsert inserts every syntactically valid row.
	PolicyUnconditionalInsert
)

// Entity is the full descriptor of one inventory table.
type Entity struct {
	Kind       string // URL segment and import kind, e.g. "asset-types"
	Table      string
	IDColumn   string
	NaturalKey string // db column; empty when the entity has no natural key
	Policy     Policy
	Timestamps bool // created_at / updated_at maintained by the store
	Columns    []Column
}

// Column looks a column up by database name.
func (e Entity) Column(name string) (Column, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SearchColumns returns the text-ish columns targeted by q= filtering.
func (e Entity) SearchColumns() []string {
	cols := []string{}
	for _, c := range e.Columns {
		if c.Kind == KindText || c.Kind == KindEnum {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// SortKeys returns the whitelist for ORDER BY clauses: "id" plus every
// column under its database name.
func (e Entity) SortKeys() map[string]string {
	keys := map[string]string{"id": e.IDColumn, e.IDColumn: e.IDColumn}
	for _, c := range e.Columns {
		keys[c.Name] = c.Name
	}
	return keys
}

var assetRef = Ref{Kind: "assets", Table: "assets", IDColumn: "asset_id", KeyColumn: "asset_tag", ByID: true}

var entities = []Entity{
	{
		Kind: "asset-types", Table: "asset_types", IDColumn: "asset_type_id",
		NaturalKey: "name", Policy: PolicyDedupNaturalKey,
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "category", Kind: KindEnum, Enum: []string{"Tangible", "Intangible"}, Required: true},
			{Name: "description", Kind: KindText},
		},
	},
	{
		Kind: "asset-statuses", Table: "asset_statuses", IDColumn: "status_id",
		NaturalKey: "status_name", Policy: PolicyDedupNaturalKey,
		Columns: []Column{
			{Name: "status_name", Kind: KindText, Required: true},
		},
	},
	{
		Kind: "departments", Table: "departments", IDColumn: "department_id",
		NaturalKey: "name", Policy: PolicyDedupNaturalKey,
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "manager_id", Header: "manager_email", Kind: KindRef,
				Ref: &Ref{Kind: "employees", Table: "employees", IDColumn: "employee_id", KeyColumn: "email"}},
		},
	},
	{
		Kind: "employees", Table: "employees", IDColumn: "employee_id",
		NaturalKey: "email", Policy: PolicyUnconditionalInsert,
		Columns: []Column{
			{Name: "first_name", Kind: KindText, Required: true},
			{Name: "last_name", Kind: KindText, Required: true},
			{Name: "email", Kind: KindText, Required: true},
			{Name: "phone", Kind: KindText},
			{Name: "department_id", Header: "department", Kind: KindRef,
				Ref: &Ref{Kind: "departments", Table: "departments", IDColumn: "department_id", KeyColumn: "name"}},
			{Name: "role", Kind: KindText},
			{Name: "status", Kind: KindEnum, Enum: []string{"Active", "Inactive"}, Default: "Active"},
		},
	},
	{
		Kind: "locations", Table: "locations", IDColumn: "location_id",
		NaturalKey: "name", Policy: PolicyDedupNaturalKey,
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "address", Kind: KindText},
			{Name: "city", Kind: KindText},
			{Name: "country", Kind: KindText},
		},
	},
	{
		Kind: "vendors", Table: "vendors", IDColumn: "vendor_id",
		NaturalKey: "name", Policy: PolicyUnconditionalInsert,
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "contact_name", Kind: KindText},
			{Name: "phone", Kind: KindText},
			{Name: "email", Kind: KindText},
			{Name: "address", Kind: KindText},
		},
	},
	{
		Kind: "assets", Table: "assets", IDColumn: "asset_id",
		NaturalKey: "asset_tag", Policy: PolicyReferenceRequired, Timestamps: true,
		Columns: []Column{
			{Name: "asset_tag", Kind: KindText, Required: true},
			{Name: "name", Kind: KindText, Required: true},
			{Name: "description", Kind: KindText},
			{Name: "asset_type_id", Header: "asset_type", Kind: KindRef,
				Ref: &Ref{Kind: "asset-types", Table: "asset_types", IDColumn: "asset_type_id", KeyColumn: "name"}},
			{Name: "status_id", Header: "status", Kind: KindRef,
				Ref: &Ref{Kind: "asset-statuses", Table: "asset_statuses", IDColumn: "status_id", KeyColumn: "status_name"}},
			{Name: "location_id", Header: "location", Kind: KindRef,
				Ref: &Ref{Kind: "locations", Table: "locations", IDColumn: "location_id", KeyColumn: "name"}},
			{Name: "vendor_id", Header: "vendor", Kind: KindRef,
				Ref: &Ref{Kind: "vendors", Table: "vendors", IDColumn: "vendor_id", KeyColumn: "name"}},
			{Name: "assigned_to", Kind: KindRef,
				Ref: &Ref{Kind: "employees", Table: "employees", IDColumn: "employee_id", KeyColumn: "email"}},
			{Name: "purchase_date", Kind: KindDate},
			{Name: "purchase_cost", Kind: KindDecimal},
			{Name: "warranty_expiry", Kind: KindDate},
			{Name: "serial_number", Kind: KindText},
		},
	},
	{
		Kind: "asset-assignments", Table: "asset_assignments", IDColumn: "assignment_id",
		Policy: PolicyReferenceRequired,
		Columns: []Column{
			{Name: "asset_id", Kind: KindRef, Required: true, Ref: &assetRef},
			{Name: "employee_id", Header: "employee_email", Kind: KindRef, Required: true,
				Ref: &Ref{Kind: "employees", Table: "employees", IDColumn: "employee_id", KeyColumn: "email"}},
			{Name: "assigned_date", Kind: KindDate, Required: true},
			{Name: "returned_date", Kind: KindDate},
		},
	},
	{
		Kind: "asset-maintenance", Table: "asset_maintenance", IDColumn: "maintenance_id",
		Policy: PolicyReferenceRequired,
		Columns: []Column{
			{Name: "asset_id", Kind: KindRef, Required: true, Ref: &assetRef},
			{Name: "maintenance_date", Kind: KindDate, Required: true},
			{Name: "description", Kind: KindText},
			{Name: "performed_by", Kind: KindText},
			{Name: "cost", Kind: KindDecimal},
			{Name: "next_due_date", Kind: KindDate},
		},
	},
	{
		Kind: "asset-disposals", Table: "asset_disposals", IDColumn: "disposal_id",
		Policy: PolicyReferenceRequired,
		Columns: []Column{
			{Name: "asset_id", Kind: KindRef, Required: true, Ref: &assetRef},
			{Name: "disposal_date", Kind: KindDate, Required: true},
			{Name: "method", Kind: KindEnum, Enum: []string{"Sold", "Recycled", "Scrapped", "Donated"}, Required: true},
			{Name: "sale_value", Kind: KindDecimal},
			{Name: "notes", Kind: KindText},
		},
	},
}

// All returns every entity descriptor in a stable order. The order matters
// for full exports: referenced entities come before the tables that point at
// them so a re-import of the bundle resolves.
func All() []Entity {
	return entities
}

// ByKind looks a descriptor up by its URL/import kind.
func ByKind(kind string) (Entity, bool) {
	for _, e := range entities {
		if e.Kind == kind {
			return e, true
		}
	}
	return Entity{}, false
}
