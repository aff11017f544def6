package catalog

import (
	"fmt"
	"strings"
)

// Definition is the declarative form of a catalog layout, as written in YAML.
type Definition struct {
	// Schemas holds named column lists that tables refer to.
	Schemas map[string]Schema `yaml:"schemas"`
	// Landing lists landing-zone tables. They have no schema of their own and
	// borrow the schema of their trusted counterpart.
	Landing []string `yaml:"landing"`
	// Trusted lists trusted and curated tables in registration order.
	Trusted []TableRef `yaml:"trusted"`
}

// TableRef names a table and the schema it uses. An empty Schema means the
// table is registered schema-less.
type TableRef struct {
	Name   string `yaml:"name"`
	Schema string `yaml:"schema,omitempty"`
}

// Registry is a validated catalog layout.
type Registry struct {
	landing []string
	trusted []string
	// tableSchemas maps trusted/curated table names to their schema.
	tableSchemas map[string]Schema
}

// NewRegistry validates def and builds a Registry from it.
func NewRegistry(def Definition) (*Registry, error) {
	for name, s := range def.Schemas {
		if len(s) == 0 {
			return nil, fmt.Errorf("schema %q: no columns", name)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
	}

	r := &Registry{tableSchemas: make(map[string]Schema)}
	seen := make(map[string]bool)
	for _, name := range def.Landing {
		if err := checkTableName(name, seen, ZoneLanding); err != nil {
			return nil, err
		}
		r.landing = append(r.landing, name)
	}
	for _, ref := range def.Trusted {
		if err := checkTableName(ref.Name, seen, ZoneTrusted, ZoneCurated); err != nil {
			return nil, err
		}
		r.trusted = append(r.trusted, ref.Name)
		if ref.Schema == "" {
			continue
		}
		s, ok := def.Schemas[ref.Schema]
		if !ok {
			return nil, fmt.Errorf("table %q: unknown schema %q", ref.Name, ref.Schema)
		}
		r.tableSchemas[ref.Name] = s.clone()
	}
	return r, nil
}

func checkTableName(name string, seen map[string]bool, zones ...Zone) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if name != strings.ToLower(name) {
		return fmt.Errorf("table %q: glue table names must be lower case", name)
	}
	if seen[name] {
		return fmt.Errorf("table %q: declared twice", name)
	}
	seen[name] = true
	z, ok := ZoneOf(name)
	if !ok {
		return fmt.Errorf("table %q: name must end in a zone suffix (%v)", name, zones)
	}
	for _, want := range zones {
		if z == want {
			return nil
		}
	}
	return fmt.Errorf("table %q: zone %q not allowed here (expected %v)", name, z, zones)
}

// Landing returns the landing table names in registration order.
func (r *Registry) Landing() []string {
	return append([]string(nil), r.landing...)
}

// Trusted returns the trusted and curated table names in registration order.
func (r *Registry) Trusted() []string {
	return append([]string(nil), r.trusted...)
}

// SchemaFor looks up the schema of a trusted or curated table.
func (r *Registry) SchemaFor(table string) (Schema, bool) {
	s, ok := r.tableSchemas[table]
	return s.clone(), ok
}

// LandingSchema returns the schema a landing table is registered with: the
// schema of its trusted counterpart.
func (r *Registry) LandingSchema(landing string) (Schema, bool) {
	return r.SchemaFor(TrustedCounterpart(landing))
}

// TableSpec is one table to register.
type TableSpec struct {
	Name     string
	Zone     Zone
	Location string
	// Schema is empty for schema-less tables.
	Schema Schema
}

// Plan resolves the registry against a bucket into the ordered list of
// tables to register: every landing table first, then the trusted and
// curated tables in declared order.
func (r *Registry) Plan(bucket string) ([]TableSpec, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	var plan []TableSpec
	for _, name := range r.landing {
		s, _ := r.LandingSchema(name)
		plan = append(plan, TableSpec{Name: name, Zone: ZoneLanding, Location: Location(bucket, name), Schema: s})
	}
	for _, name := range r.trusted {
		z, _ := ZoneOf(name)
		s, _ := r.SchemaFor(name)
		plan = append(plan, TableSpec{Name: name, Zone: z, Location: Location(bucket, name), Schema: s})
	}
	for _, t := range plan {
		if err := ValidateLocation(bucket, t.Location); err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
	}
	return plan, nil
}

// Location is the S3 prefix a table's data lives under.
func Location(bucket, table string) string {
	return fmt.Sprintf("s3://%s/%s/", bucket, table)
}

// ValidateLocation checks that loc is a prefix inside bucket.
func ValidateLocation(bucket, loc string) error {
	root := "s3://" + bucket + "/"
	if !strings.HasPrefix(loc, root) {
		return fmt.Errorf("location %q is outside bucket %q", loc, bucket)
	}
	prefix := strings.TrimPrefix(loc, root)
	if prefix == "" || strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") || strings.Contains(prefix, "//") {
		return fmt.Errorf("location %q is not a bucket prefix", loc)
	}
	return nil
}
