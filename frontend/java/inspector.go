// Package java parses Java sources into the mutable code model and writes
// mutated models back out as compilable Java.
package java

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/libshade/libshade/model"
)

// Config controls which sources the inspector admits.
type Config struct {
	SkipTests bool
}

// Inspector parses Java code and extracts classes, members and method
// bodies into a code model.
type Inspector struct {
	config *Config
}

// NewInspector creates a Java Inspector with the provided configuration.
func NewInspector(config *Config) *Inspector {
	if config == nil {
		config = &Config{}
	}
	return &Inspector{config: config}
}

// InspectSource parses Java source code from a byte slice.
func (i *Inspector) InspectSource(src []byte) (*model.CodeModel, error) {
	m := model.NewCodeModel()
	if err := i.inspectInto(m, src, "source.java"); err != nil {
		return nil, err
	}
	link(m)
	return m, nil
}

// InspectFile parses a single Java source file.
func (i *Inspector) InspectFile(filename string) (*model.CodeModel, error) {
	m := model.NewCodeModel()
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if err := i.inspectInto(m, src, filename); err != nil {
		return nil, err
	}
	link(m)
	return m, nil
}

// InspectDir walks a source tree and parses every Java file into one model.
func (i *Inspector) InspectDir(root string) (*model.CodeModel, error) {
	m := model.NewCodeModel()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".java" {
			return nil
		}
		if i.config.SkipTests && (strings.HasSuffix(path, "Test.java") || strings.HasSuffix(path, "Tests.java")) {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		return i.inspectInto(m, src, path)
	})
	if err != nil {
		return nil, fmt.Errorf("error walking source directory: %w", err)
	}
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("no Java files found under: %s", root)
	}
	link(m)
	return m, nil
}

// inspectInto parses one compilation unit and adds its classes to the model.
func (i *Inspector) inspectInto(m *model.CodeModel, src []byte, filename string) error {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	rootNode := tree.RootNode()

	pkg := ""
	importMap := make(map[string]string)
	var typeNodes []*sitter.Node

	for j := uint32(0); j < rootNode.NamedChildCount(); j++ {
		childNode := rootNode.NamedChild(int(j))
		switch childNode.Type() {
		case "package_declaration":
			pkg = parsePackageDeclaration(childNode, src)
		case "import_declaration":
			for name, scope := range parseImportDeclaration(childNode, src) {
				importMap[name] = scope
			}
		case "class_declaration", "interface_declaration":
			typeNodes = append(typeNodes, childNode)
		}
	}

	for _, typeNode := range typeNodes {
		class := parseTypeDeclaration(typeNode, src, pkg, importMap)
		if class == nil {
			continue
		}
		if err := m.AddClass(class); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	return nil
}

// link resolves call descriptors left open during parsing. An invocation
// whose callee cannot be pinned to exactly one method degrades to a raw
// statement so later rewrites never retarget it wrongly.
func link(m *model.CodeModel) {
	for _, class := range m.Classes {
		for _, method := range class.Methods {
			for idx := range method.Body {
				ins := &method.Body[idx]
				if ins.Kind != model.InstrInvoke || ins.TargetDesc != "" {
					continue
				}
				desc, ok := resolveDescriptor(m, ins)
				if !ok {
					*ins = model.Raw(ins.Text)
					continue
				}
				ins.TargetDesc = desc
			}
		}
	}
}

func resolveDescriptor(m *model.CodeModel, ins *model.Instruction) (string, bool) {
	class := m.Class(ins.TargetClass)
	if class == nil {
		return "", false
	}
	name := ins.TargetMethod
	matches := 0
	desc := ""
	for _, met := range class.Methods {
		if met.Name == name && len(met.Params) == len(ins.Args) {
			desc = met.Descriptor()
			matches++
		}
	}
	if matches != 1 {
		return "", false
	}
	return desc, true
}
