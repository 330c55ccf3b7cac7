// cmd/annogen/main.go
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// This binary is a code-generation tool.
//
// It reads a manifest (JSON or YAML) listing the annotations attached to the
// types of one package, and generates a registration function that replays
// them against a *decor.Registry at startup.
//
// Key behaviors:
// - Reads manifest: package, function name, owners with members and parameter rules
// - Locates the "owner" Go file (the file containing the go:generate for cmd/annogen)
// - Reuses only the owner imports that interceptor expressions actually reference
// - Adds the decor imports the generated body needs
// - gofmt's the result and writes it atomically (temp file + rename)

const generatorName = "annogen"

// Interceptor attaches one interceptor expression to a member.
type Interceptor struct {
	// Expr is a Go expression of type intercept.Interceptor, e.g. wrap.Timeout(time.Second).
	// The identifier r (the registry) is in scope.
	Expr string `json:"expr" yaml:"expr"`

	// Mode is "stack" (default) or "declaration".
	Mode string `json:"mode" yaml:"mode"`
}

// ParamRule lists the transforms and validations for one positional parameter.
//
// Builtins: trim, lowercase, mask for transforms; required, gt:<n>, tag:<rule>
// for validations.
type ParamRule struct {
	Index     int      `json:"index" yaml:"index"`
	Transform []string `json:"transform" yaml:"transform"`
	Validate  []string `json:"validate" yaml:"validate"`
}

// Member is a method or accessor of an owner.
type Member struct {
	Name         string        `json:"name" yaml:"name"`
	Interceptors []Interceptor `json:"interceptors" yaml:"interceptors"`
	Params       []ParamRule   `json:"params" yaml:"params"`
}

// Injection binds a constructor position to a container token.
type Injection struct {
	Index int    `json:"index" yaml:"index"`
	Token string `json:"token" yaml:"token"`
}

// Owner describes the annotations of one type.
type Owner struct {
	// Type is the type name in the target package.
	Type string `json:"type" yaml:"type"`

	// Constructor is optional: func(context.Context, []any) (*Type, error).
	Constructor string `json:"constructor" yaml:"constructor"`

	Singleton bool        `json:"singleton" yaml:"singleton"`
	Inject    []Injection `json:"inject" yaml:"inject"`
	Inputs    []string    `json:"inputs" yaml:"inputs"`
	Members   []Member    `json:"members" yaml:"members"`
}

// Manifest is the full input schema consumed by the generator.
type Manifest struct {
	Package  string `json:"package" yaml:"package"`
	Function string `json:"function" yaml:"function"`

	// Imports are extra import paths for interceptor expressions, used when the
	// owner file does not provide them.
	Imports []string `json:"imports" yaml:"imports"`

	Owners []Owner `json:"owners" yaml:"owners"`
}

// ImportSpec models one Go import: optional alias and full import path.
type ImportSpec struct {
	Alias string
	Path  string
}

// Statement is one rendered registration call.
type Statement struct {
	Call string
}

// templateData is the input passed to the Go template.
type templateData struct {
	Manifest    Manifest
	ImportsList []ImportSpec
	Statements  []Statement
}

// run executes the generator logic and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet(generatorName, flag.ContinueOnError)
	flags.SetOutput(stderr)

	manifestPath := flags.String("manifest", "", "path to annotations.yaml or annotations.json")
	outPath := flags.String("out", "", "output .gen.go file path")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*manifestPath) == "" || strings.TrimSpace(*outPath) == "" {
		_, _ = fmt.Fprintln(stderr, "usage: annogen -manifest <annotations.yaml> -out <file.gen.go>")
		return 2
	}

	manifestBytes, err := os.ReadFile(*manifestPath)
	must(err)

	manifest, err := decodeManifest(*manifestPath, manifestBytes)
	must(err)

	validateManifest(&manifest)

	if strings.TrimSpace(manifest.Function) == "" {
		manifest.Function = "RegisterAnnotations"
	}

	statements, err := renderStatements(&manifest)
	must(err)

	generatedFilePath := filepath.Clean(*outPath)
	packageDir := filepath.Dir(generatedFilePath)

	ownerGoFilePath, err := findOwnerGoGenerateFile(packageDir)
	if err != nil {
		// Generation still works from the manifest imports alone.
		ownerGoFilePath = ""
	}

	importsList, err := resolveImports(ownerGoFilePath, &manifest, statements)
	if err != nil {
		panic(err)
	}

	data := templateData{
		Manifest:    manifest,
		ImportsList: importsList,
		Statements:  statements,
	}

	var out bytes.Buffer
	must(genTemplate.Execute(&out, data))

	src, err := format.Source(out.Bytes())
	if err != nil {
		panic(fmt.Errorf("generated code does not parse: %w", err))
	}

	must(writeFileAtomic(generatedFilePath, src, 0o644))
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// decodeManifest picks the decoder from the file extension; JSON is the default.
func decodeManifest(manifestPath string, data []byte) (Manifest, error) {
	var manifest Manifest
	switch strings.ToLower(filepath.Ext(manifestPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return Manifest{}, fmt.Errorf("failed to decode yaml manifest: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &manifest); err != nil {
			return Manifest{}, fmt.Errorf("failed to decode json manifest: %w", err)
		}
	}
	return manifest, nil
}

// validateManifest validates semantic correctness of the manifest.
func validateManifest(manifest *Manifest) {
	var missingFields []string

	if strings.TrimSpace(manifest.Package) == "" {
		missingFields = append(missingFields, "package")
	}
	if len(manifest.Owners) == 0 {
		missingFields = append(missingFields, "owners (must have at least 1)")
	}
	if len(missingFields) > 0 {
		panic(fmt.Errorf("manifest missing required fields: %v", missingFields))
	}

	if manifest.Function != "" && !token.IsIdentifier(manifest.Function) {
		panic(fmt.Errorf("function is not a Go identifier: %q", manifest.Function))
	}

	seenOwners := make(map[string]struct{}, len(manifest.Owners))
	for _, owner := range manifest.Owners {
		if !token.IsIdentifier(owner.Type) {
			panic(fmt.Errorf("owner type is not a Go identifier: %q", owner.Type))
		}
		if _, ok := seenOwners[owner.Type]; ok {
			panic(fmt.Errorf("duplicate owner: %s", owner.Type))
		}
		seenOwners[owner.Type] = struct{}{}

		if len(owner.Inject) > 0 && owner.Constructor == "" {
			panic(fmt.Errorf("owner %s injects constructor parameters but has no constructor", owner.Type))
		}

		seenIndexes := make(map[int]struct{}, len(owner.Inject))
		for _, inj := range owner.Inject {
			if inj.Index < 0 || strings.TrimSpace(inj.Token) == "" {
				panic(fmt.Errorf("owner %s: each injection needs index >= 0 and a token; got: %+v", owner.Type, inj))
			}
			if _, ok := seenIndexes[inj.Index]; ok {
				panic(fmt.Errorf("owner %s: duplicate injection index: %d", owner.Type, inj.Index))
			}
			seenIndexes[inj.Index] = struct{}{}
		}

		seenMembers := make(map[string]struct{}, len(owner.Members))
		for _, member := range owner.Members {
			if !token.IsIdentifier(member.Name) {
				panic(fmt.Errorf("owner %s: member is not a Go identifier: %q", owner.Type, member.Name))
			}
			if _, ok := seenMembers[member.Name]; ok {
				panic(fmt.Errorf("owner %s: duplicate member: %s", owner.Type, member.Name))
			}
			seenMembers[member.Name] = struct{}{}

			for _, p := range member.Params {
				if p.Index < 0 {
					panic(fmt.Errorf("%s.%s: negative parameter index %d", owner.Type, member.Name, p.Index))
				}
			}
		}
	}
}

// renderStatements turns the manifest into registration calls, in manifest
// order. Attach order is preserved since it decides chain nesting.
func renderStatements(manifest *Manifest) ([]Statement, error) {
	var out []Statement
	add := func(call string) { out = append(out, Statement{Call: call}) }

	for _, owner := range manifest.Owners {
		typeExpr := "reflect.TypeFor[" + owner.Type + "]()"

		if owner.Constructor != "" {
			add("decor.Define(r, " + owner.Constructor + ")")
		}
		if owner.Singleton {
			add("r.MarkSingleton(" + typeExpr + ")")
		}
		for _, inj := range owner.Inject {
			add("r.Inject(" + typeExpr + ", " + strconv.Itoa(inj.Index) + ", " + strconv.Quote(inj.Token) + ")")
		}
		for _, field := range owner.Inputs {
			add("r.MarkInput(" + typeExpr + ", " + strconv.Quote(field) + ")")
		}

		for _, member := range owner.Members {
			idExpr := "decl.Member[" + owner.Type + "](" + strconv.Quote(member.Name) + ")"

			for _, ic := range member.Interceptors {
				if _, err := parser.ParseExpr(ic.Expr); err != nil {
					return nil, fmt.Errorf("%s.%s: bad interceptor expression %q: %w", owner.Type, member.Name, ic.Expr, err)
				}
				mode, err := modeExpr(ic.Mode)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", owner.Type, member.Name, err)
				}
				add("r.Intercept(" + idExpr + ", " + ic.Expr + ", " + mode + ")")
			}

			for _, p := range member.Params {
				for _, name := range p.Transform {
					expr, err := transformExpr(name)
					if err != nil {
						return nil, fmt.Errorf("%s.%s[%d]: %w", owner.Type, member.Name, p.Index, err)
					}
					add("r.OnParameter(" + idExpr + ", " + strconv.Itoa(p.Index) + ", decor.Transform(" + expr + "))")
				}
				for _, name := range p.Validate {
					expr, err := validationExpr(name)
					if err != nil {
						return nil, fmt.Errorf("%s.%s[%d]: %w", owner.Type, member.Name, p.Index, err)
					}
					add("r.OnParameter(" + idExpr + ", " + strconv.Itoa(p.Index) + ", decor.Validate(" + expr + "))")
				}
			}
		}
	}
	return out, nil
}

func modeExpr(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "stack":
		return "intercept.StackOrder", nil
	case "declaration":
		return "intercept.DeclarationOrder", nil
	default:
		return "", fmt.Errorf("unknown interceptor mode %q", mode)
	}
}

func transformExpr(name string) (string, error) {
	switch strings.TrimSpace(name) {
	case "trim":
		return "params.Trim()", nil
	case "lowercase":
		return "params.Lowercase()", nil
	case "mask":
		return "params.Mask()", nil
	default:
		return "", fmt.Errorf("unknown transform %q", name)
	}
}

func validationExpr(name string) (string, error) {
	rule, arg, hasArg := strings.Cut(strings.TrimSpace(name), ":")
	switch {
	case rule == "required" && !hasArg:
		return "params.Required()", nil
	case rule == "gt" && hasArg:
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return "", fmt.Errorf("gt needs a number, got %q", arg)
		}
		return "params.GreaterThan(" + strconv.FormatFloat(n, 'g', -1, 64) + ")", nil
	case rule == "tag" && hasArg && arg != "":
		return "params.Tag(" + strconv.Quote(arg) + ")", nil
	default:
		return "", fmt.Errorf("unknown validation %q", name)
	}
}

// findOwnerGoGenerateFile finds the Go source file in packageDir that contains a go:generate
// directive invoking cmd/annogen.
func findOwnerGoGenerateFile(packageDir string) (string, error) {
	dirEntries, err := os.ReadDir(packageDir)
	if err != nil {
		return "", err
	}

	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()
		if !strings.HasSuffix(fileName, ".go") ||
			strings.HasSuffix(fileName, "_test.go") ||
			strings.HasSuffix(fileName, ".gen.go") {
			continue
		}

		filePath := filepath.Join(packageDir, fileName)
		fileBytes, err := os.ReadFile(filePath)
		if err != nil {
			// Best-effort: unreadable file shouldn't break generation.
			continue
		}

		if bytes.Contains(fileBytes, []byte("go:generate")) && bytes.Contains(fileBytes, []byte("cmd/"+generatorName)) {
			return filePath, nil
		}
	}

	return "", fmt.Errorf("could not find owner file with go:generate invoking cmd/%s in %s", generatorName, packageDir)
}

// readImportsFromFile parses imports from a Go file.
func readImportsFromFile(goFilePath string) ([]ImportSpec, error) {
	fileSet := token.NewFileSet()
	parsedFile, err := parser.ParseFile(fileSet, goFilePath, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	var imports []ImportSpec
	for _, importDecl := range parsedFile.Imports {
		importPath := strings.Trim(importDecl.Path.Value, `"`)
		importAlias := ""
		if importDecl.Name != nil {
			importAlias = importDecl.Name.Name
		}
		imports = append(imports, ImportSpec{Alias: importAlias, Path: importPath})
	}

	return imports, nil
}

func ensureImport(imports *[]ImportSpec, required ImportSpec) {
	for _, existing := range *imports {
		if existing.Path == required.Path {
			return
		}
	}
	*imports = append(*imports, required)
}

func importDefaultIdent(importPath string) string {
	// Import paths always use forward slashes, even on Windows.
	return path.Base(strings.TrimSpace(importPath))
}

// importIdent is the identifier an import binds in the file.
func importIdent(imp ImportSpec) string {
	if imp.Alias != "" {
		return imp.Alias
	}
	return importDefaultIdent(imp.Path)
}

// referencedPackages collects the X of every X.Sel selector in the statements.
func referencedPackages(statements []Statement) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, st := range statements {
		expr, err := parser.ParseExpr(st.Call)
		if err != nil {
			continue
		}
		ast.Inspect(expr, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if ident, ok := sel.X.(*ast.Ident); ok {
					refs[ident.Name] = struct{}{}
				}
			}
			return true
		})
	}
	return refs
}

// decorImports are the framework packages the generated body may use.
var decorImports = []ImportSpec{
	{Path: "reflect"},
	{Path: "github.com/sghaida/decor"},
	{Path: "github.com/sghaida/decor/decl"},
	{Path: "github.com/sghaida/decor/intercept"},
	{Path: "github.com/sghaida/decor/params"},
}

// resolveImports builds the final imports list for the generated file.
//
// Rules:
// - Only packages referenced by a statement are imported
// - decor packages come first, then owner imports, then manifest imports
// - A referenced identifier that no import binds is an error
func resolveImports(ownerFilePath string, manifest *Manifest, statements []Statement) ([]ImportSpec, error) {
	var candidates []ImportSpec
	candidates = append(candidates, decorImports...)

	if strings.TrimSpace(ownerFilePath) != "" {
		ownerImports, err := readImportsFromFile(ownerFilePath)
		if err == nil {
			candidates = append(candidates, ownerImports...)
		}
	}
	for _, p := range manifest.Imports {
		candidates = append(candidates, ImportSpec{Path: p})
	}

	refs := referencedPackages(statements)
	// r is the registry parameter; its type always needs decor.
	delete(refs, "r")
	refs["decor"] = struct{}{}

	bound := make(map[string]struct{}, len(refs))
	var finalImports []ImportSpec
	for _, imp := range candidates {
		ident := importIdent(imp)
		if _, ok := refs[ident]; !ok {
			continue
		}
		if _, ok := bound[ident]; ok {
			continue
		}
		bound[ident] = struct{}{}
		ensureImport(&finalImports, imp)
	}

	var unbound []string
	for ident := range refs {
		if _, ok := bound[ident]; !ok {
			unbound = append(unbound, ident)
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		return nil, fmt.Errorf("no import provides %v; add it to the owner file or manifest imports", unbound)
	}

	return finalImports, nil
}

// genTemplate is the Go source template used to generate the registration code.
var genTemplate = template.Must(
	template.New(generatorName).Parse(`// Code generated by annogen; DO NOT EDIT.

package {{.Manifest.Package}}

import (
{{- range .ImportsList}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)

// {{.Manifest.Function}} replays the package annotations against r.
func {{.Manifest.Function}}(r *decor.Registry) error {
	{{- range .Statements}}
	if err := {{.Call}}; err != nil {
		return err
	}
	{{- end}}
	return nil
}
`),
)

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeFileAtomic writes to a temporary file in the same directory and then
// renames it over the target path, so readers never observe partial writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	targetDir := filepath.Dir(targetPath)

	tmpFile, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}

// must panics if err is non-nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
