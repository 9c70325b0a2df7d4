// Command dvsqlc is a CLI entry point wiring the compiler pieces together
// for manual testing: parse a T-SQL statement, compile it against an
// in-memory entity metadata provider loaded from a JSON schema file, and
// print the resulting FetchXML/plan. Modeled on the teacher's redi-orm CLI
// (flag-based subcommands, a prefixed DefaultLogger driven by --log-level).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hollowloop/dvsql/altplan"
	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/dml"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/logger"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

const usage = `dvsqlc - T-SQL to FetchXML compiler CLI

Usage:
  dvsqlc compile --schema=schema.json "SELECT ..."

Flags:
  --schema      Path to a JSON entity metadata file (required)
  --log-level   debug|info|warn|error|none (default: info)
  --tsql-endpoint  Set Options.TSQLEndpointAvailable (no raw-SQL fallback is produced)
  --quoted      Set Options.QuotedIdentifiers ("quoted" and [bracketed] identifiers are accepted either way)
`

// schemaFile is the on-disk shape --schema loads into an
// metadata.InMemoryProvider; it mirrors metadata.EntityMetadata field for
// field rather than introducing a second domain model.
type schemaFile struct {
	Entities []struct {
		LogicalName           string `json:"logicalName"`
		PrimaryIDAttribute    string `json:"primaryIdAttribute"`
		IsIntersect           bool   `json:"isIntersect"`
		DisplayName           string `json:"displayName"`
		DisplayCollectionName string `json:"displayCollectionName"`
		Attributes            []struct {
			LogicalName    string `json:"logicalName"`
			AttributeType  string `json:"attributeType"`
			IsValidForRead bool   `json:"isValidForRead"`
		} `json:"attributes"`
		ManyToManyRelationships []struct {
			SchemaName                string `json:"schemaName"`
			Entity1IntersectAttribute string `json:"entity1IntersectAttribute"`
			Entity2IntersectAttribute string `json:"entity2IntersectAttribute"`
		} `json:"manyToManyRelationships"`
	} `json:"entities"`
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var (
		schemaPath   string
		logLevel     string
		tsqlEndpoint bool
		quoted       bool
	)
	flag.StringVar(&schemaPath, "schema", "", "Path to a JSON entity metadata file")
	flag.StringVar(&logLevel, "log-level", "info", "Logging level: debug|info|warn|error|none")
	flag.BoolVar(&tsqlEndpoint, "tsql-endpoint", false, "Set Options.TSQLEndpointAvailable (no raw-SQL fallback is produced)")
	flag.BoolVar(&quoted, "quoted", false, "Set Options.QuotedIdentifiers (quoted/bracketed identifiers are accepted either way)")

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	command := os.Args[1]
	flag.CommandLine.Parse(os.Args[2:])

	l := logger.NewDefaultLogger("dvsqlc")
	l.SetLevel(logger.ParseLogLevel(logLevel))
	logger.SetGlobalLogger(l)

	switch command {
	case "compile":
		runCompile(l, schemaPath, tsqlEndpoint, quoted, flag.Args())
	case "help", "--help", "-h":
		flag.Usage()
	default:
		l.Error("unknown command: %s", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runCompile(l logger.Logger, schemaPath string, tsqlEndpoint, quoted bool, args []string) {
	if schemaPath == "" {
		l.Error("--schema is required")
		os.Exit(1)
	}
	if len(args) == 0 {
		l.Error("a T-SQL statement argument is required")
		os.Exit(1)
	}
	text := strings.Join(args, " ")

	md, err := loadSchema(schemaPath)
	if err != nil {
		l.Error("failed to load schema: %v", err)
		os.Exit(1)
	}

	stmt, err := tsql.ParseQuery(text)
	if err != nil {
		l.Error("parse failed: %v", err)
		os.Exit(1)
	}

	opts := compiler.Options{QuotedIdentifiers: quoted, TSQLEndpointAvailable: tsqlEndpoint}

	switch sel := stmt.(type) {
	case *tsql.SelectStatement:
		l.Debug("compiling SELECT statement")
		cq, err := altplan.Compile(sel, md, opts)
		if err != nil {
			l.Error("compile failed: %v", err)
			os.Exit(1)
		}
		printCompiledQuery(cq)
	default:
		l.Debug("compiling DML statement")
		plan, err := dml.Compile(stmt, md, opts)
		if err != nil {
			l.Error("compile failed: %v", err)
			os.Exit(1)
		}
		printDMLPlan(plan)
	}
}

func printCompiledQuery(cq *compiler.CompiledQuery) {
	if cq.SQL != "" {
		fmt.Println("-- raw SQL fallback --")
		fmt.Println(cq.SQL)
		return
	}
	fmt.Println("-- FetchXML --")
	fmt.Println(cq.FetchXML)
	fmt.Printf("-- columns: %s --\n", strings.Join(cq.Columns, ", "))
	if len(cq.Pipeline) > 0 {
		fmt.Printf("-- post-processing pipeline: %d operator(s) --\n", len(cq.Pipeline))
	}
	if cq.AggregateAlternative != nil {
		fmt.Println("-- aggregate alternative --")
		printCompiledQuery(cq.AggregateAlternative)
	}
}

func printDMLPlan(plan any) {
	switch p := plan.(type) {
	case *dml.UpdatePlan:
		fmt.Printf("-- UPDATE %s, %d set column(s) --\n", p.EntityName, len(p.Updates))
		printCompiledQuery(p.Select)
	case *dml.DeletePlan:
		fmt.Printf("-- DELETE %s, id columns: %s --\n", p.EntityName, strings.Join(p.IDColumns, ", "))
		printCompiledQuery(p.Select)
	case *dml.InsertValuesPlan:
		fmt.Printf("-- INSERT %s VALUES, %d row(s) --\n", p.EntityName, len(p.Rows))
	case *dml.InsertSelectPlan:
		fmt.Printf("-- INSERT %s SELECT --\n", p.EntityName)
		printCompiledQuery(p.Select)
	}
}

func loadSchema(path string) (*metadata.InMemoryProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf schemaFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	provider := metadata.NewInMemoryProvider()
	for _, e := range sf.Entities {
		em := &metadata.EntityMetadata{
			LogicalName:           e.LogicalName,
			PrimaryIDAttribute:    e.PrimaryIDAttribute,
			IsIntersect:           e.IsIntersect,
			DisplayName:           e.DisplayName,
			DisplayCollectionName: e.DisplayCollectionName,
		}
		for _, a := range e.Attributes {
			em.Attributes = append(em.Attributes, metadata.AttributeMetadata{
				LogicalName:    a.LogicalName,
				AttributeType:  dvtypes.MetadataAttributeType(a.AttributeType),
				IsValidForRead: a.IsValidForRead,
			})
		}
		for _, r := range e.ManyToManyRelationships {
			em.ManyToManyRelationships = append(em.ManyToManyRelationships, metadata.ManyToManyRelationship{
				SchemaName:                r.SchemaName,
				Entity1IntersectAttribute: r.Entity1IntersectAttribute,
				Entity2IntersectAttribute: r.Entity2IntersectAttribute,
			})
		}
		provider.Register(em)
	}
	return provider, nil
}
