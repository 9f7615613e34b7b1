package commands

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/fluentmap/internal/cli/ui"
	"github.com/conduit-lang/fluentmap/internal/demo"
	"github.com/conduit-lang/fluentmap/internal/orm/extension"
	"github.com/conduit-lang/fluentmap/internal/orm/fluent"
	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
	"github.com/conduit-lang/fluentmap/internal/orm/query"
)

// TypeReport is the resolved mapping of one type as describe prints it
type TypeReport struct {
	Type         string              `yaml:"type"`
	Table        string              `yaml:"table"`
	Columns      []ColumnReport      `yaml:"columns"`
	Associations []AssociationReport `yaml:"associations,omitempty"`
	Relations    []RelationReport    `yaml:"relations,omitempty"`
	Inheritance  []InheritanceReport `yaml:"inheritance,omitempty"`
	Ignored      []string            `yaml:"ignored,omitempty"`
}

// ColumnReport describes one mapped column
type ColumnReport struct {
	Member  string            `yaml:"member"`
	Column  string            `yaml:"column"`
	Type    string            `yaml:"type"`
	Flags   []string          `yaml:"flags,omitempty"`
	Default string            `yaml:"default,omitempty"`
	Null    string            `yaml:"null,omitempty"`
	Values  map[string]string `yaml:"values,omitempty"`
	Mapper  string            `yaml:"mapper,omitempty"`
}

// AssociationReport describes one association
type AssociationReport struct {
	Member    string   `yaml:"member"`
	ThisKey   []string `yaml:"this_key"`
	OtherKey  []string `yaml:"other_key"`
	CanBeNull bool     `yaml:"can_be_null"`
	Many      bool     `yaml:"many"`
}

// RelationReport describes one relation
type RelationReport struct {
	Member      string   `yaml:"member"`
	Destination string   `yaml:"destination"`
	SlaveIndex  []string `yaml:"slave_index,omitempty"`
	MasterIndex []string `yaml:"master_index,omitempty"`
}

// InheritanceReport describes one discriminator mapping
type InheritanceReport struct {
	Type    string `yaml:"type"`
	Code    string `yaml:"code,omitempty"`
	Default bool   `yaml:"default,omitempty"`
}

func newDescribeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [type]",
		Short: "Describe the merged mapping of the demo catalog",
		Long: `Describe the merged mapping of the demo catalog.

Every mapper registered in the catalog is built, merged into a schema and
read back the way the data-access layer reads it. Without an argument all
types are listed; with a type name (short or fully qualified) only that type
is shown.`,
		Example: `  # Describe every mapped type
  fluentmap describe

  # Describe one type as YAML with SQLite quoting
  fluentmap describe Book --format yaml --dialect sqlite`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTypeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := buildReports(demo.Catalog(), demo.Unit, opts.cfg.Database.Dialect, opts.logger)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				r, err := findReport(reports, args[0])
				if err != nil {
					return err
				}
				reports = []TypeReport{r}
			}
			return writeReports(cmd.OutOrStdout(), reports, opts.cfg.Output.Format)
		},
	}
}

// buildReports merges unit from catalog into a fresh schema and reports
// each registered type in registration order
func buildReports(catalog *fluent.Catalog, unit, dialectName string, logger *zap.Logger) ([]TypeReport, error) {
	dialect, err := query.DialectByName(dialectName)
	if err != nil {
		return nil, err
	}

	mappers := catalog.Build(unit)
	list := extension.NewList()
	fluent.Configure(list, fluent.Extensions(mappers...), fluent.WithLogger(logger))
	schema := mapping.NewSchema(list, mapping.WithLogger(logger))

	reports := make([]TypeReport, 0, len(mappers))
	for _, m := range mappers {
		if !mapsTable(m) {
			continue
		}
		om, err := schema.Mapper(m.Type())
		if err != nil {
			return nil, fmt.Errorf("failed to map %s: %w", m.Type(), err)
		}
		reports = append(reports, newTypeReport(om, dialect))
	}
	return reports, nil
}

// mapsTable reports whether m maps a struct to a table. Maps of enum types
// only carry storage values for the columns that use them.
func mapsTable(m fluent.Mapper) bool {
	return m.Type().Kind() == reflect.Struct
}

func newTypeReport(om *mapping.ObjectMapper, dialect query.Dialect) TypeReport {
	r := TypeReport{
		Type:    om.TypeName,
		Table:   query.TableName(dialect, om),
		Ignored: om.MapIgnored,
	}

	for _, c := range om.Columns {
		cr := ColumnReport{
			Member: c.Member,
			Column: c.Name,
			Type:   c.Type.String(),
			Flags:  columnFlags(c),
		}
		if c.Default != nil {
			cr.Default = c.Default.Value
		}
		if c.Null != nil {
			cr.Null = c.Null.Value
		}
		if len(c.Values) > 0 {
			cr.Values = make(map[string]string, len(c.Values))
			for _, vm := range c.Values {
				if prev, ok := cr.Values[vm.Orig]; ok {
					cr.Values[vm.Orig] = prev + "|" + vm.Value
					continue
				}
				cr.Values[vm.Orig] = vm.Value
			}
		}
		if c.Mapper != nil {
			cr.Mapper = reflect.TypeOf(c.Mapper).String()
		}
		r.Columns = append(r.Columns, cr)
	}

	for _, a := range om.Associations {
		r.Associations = append(r.Associations, AssociationReport{
			Member:    a.Member,
			ThisKey:   a.ThisKey,
			OtherKey:  a.OtherKey,
			CanBeNull: a.CanBeNull,
			Many:      a.Many,
		})
	}
	for _, rel := range om.Relations {
		r.Relations = append(r.Relations, RelationReport{
			Member:      rel.Member,
			Destination: rel.DestinationType,
			SlaveIndex:  rel.SlaveIndex,
			MasterIndex: rel.MasterIndex,
		})
	}
	for _, im := range om.Inheritance {
		r.Inheritance = append(r.Inheritance, InheritanceReport{
			Type:    im.Type,
			Code:    im.Code,
			Default: im.IsDefault,
		})
	}
	return r
}

func columnFlags(c *mapping.Column) []string {
	var flags []string
	if c.PrimaryKey {
		if c.PrimaryKeyOrder >= 0 {
			flags = append(flags, fmt.Sprintf("pk:%d", c.PrimaryKeyOrder))
		} else {
			flags = append(flags, "pk")
		}
	}
	add := func(set bool, name string) {
		if set {
			flags = append(flags, name)
		}
	}
	add(c.Identity, "identity")
	add(c.NonUpdatable, "non-updatable")
	add(c.SqlIgnore, "sql-ignore")
	add(c.Trimmable, "trim")
	add(c.Nullable, "nullable")
	add(c.IsDiscriminator, "discriminator")
	if c.Storage != "" {
		flags = append(flags, "storage:"+c.Storage)
	}
	return flags
}

// findReport matches name against the full type name first, then the short name
func findReport(reports []TypeReport, name string) (TypeReport, error) {
	for _, r := range reports {
		if r.Type == name {
			return r, nil
		}
	}
	var matches []TypeReport
	shorts := make([]string, len(reports))
	for i, r := range reports {
		shorts[i] = r.Type[strings.LastIndex(r.Type, ".")+1:]
		if strings.EqualFold(shorts[i], name) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		if similar := ui.Suggest(name, shorts, 3); len(similar) > 0 {
			return TypeReport{}, fmt.Errorf("type not found: %s (did you mean %s?)", name, strings.Join(similar, ", "))
		}
		return TypeReport{}, fmt.Errorf("type not found: %s", name)
	case 1:
		return matches[0], nil
	default:
		return TypeReport{}, fmt.Errorf("type name %s is ambiguous", name)
	}
}

func writeReports(w io.Writer, reports []TypeReport, format string) error {
	switch strings.ToLower(format) {
	case "yaml":
		return writeYAML(w, reports)
	case "table", "":
		writeTable(w, reports)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (must be table or yaml)", format)
	}
}

func writeYAML(w io.Writer, reports []TypeReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

func writeTable(w io.Writer, reports []TypeReport) {
	faint := color.New(color.Faint)

	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		ui.Header(w, r.Type, "-> "+r.Table)

		table := ui.NewTable(w, "MEMBER", "COLUMN", "TYPE", "FLAGS", "DETAILS").
			Indent("  ").
			Style(3, color.New(color.FgYellow))
		for _, c := range r.Columns {
			table.AddRow(c.Member, c.Column, c.Type, strings.Join(c.Flags, ","), detail(c))
		}
		table.Render()

		for _, a := range r.Associations {
			kind := "one"
			if a.Many {
				kind = "many"
			}
			fmt.Fprintf(w, "  association %s (%s): %s -> %s",
				a.Member, kind, strings.Join(a.ThisKey, ", "), strings.Join(a.OtherKey, ", "))
			if a.CanBeNull {
				faint.Fprint(w, " nullable")
			}
			fmt.Fprintln(w)
		}
		for _, rel := range r.Relations {
			fmt.Fprintf(w, "  relation %s -> %s\n", rel.Member, rel.Destination)
		}
		for _, im := range r.Inheritance {
			fmt.Fprintf(w, "  inheritance %s code=%q default=%t\n", im.Type, im.Code, im.Default)
		}
		if len(r.Ignored) > 0 {
			faint.Fprintf(w, "  ignored: %s\n", strings.Join(r.Ignored, ", "))
		}
	}
}

func detail(c ColumnReport) string {
	var parts []string
	if c.Default != "" {
		parts = append(parts, "default="+c.Default)
	}
	if c.Null != "" {
		parts = append(parts, "null="+c.Null)
	}
	if len(c.Values) > 0 {
		keys := make([]string, 0, len(c.Values))
		for k := range c.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + c.Values[k]
		}
		parts = append(parts, "values{"+strings.Join(pairs, " ")+"}")
	}
	if c.Mapper != "" {
		parts = append(parts, "mapper="+c.Mapper)
	}
	return strings.Join(parts, " ")
}
