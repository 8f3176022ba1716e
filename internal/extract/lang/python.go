package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/pders01/repolens/internal/models"
)

type pythonExtractor struct{}

func (pythonExtractor) DetectDeclarations(source []byte) ([]models.Declaration, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("python parse failed: %w", err)
	}
	defer tree.Close()

	var decls []models.Declaration
	pyWalk(tree.RootNode(), source, "", true, &decls)
	return decls, nil
}

// pyWalk collects declarations from a block. enclosing is the class name for
// method qualification; topLevel gates variable and import collection so
// function locals are not reported.
func pyWalk(block *sitter.Node, source []byte, enclosing string, topLevel bool, decls *[]models.Declaration) {
	for i := 0; i < int(block.ChildCount()); i++ {
		node := block.Child(i)

		// Decorated definitions wrap the real node.
		if node.Type() == "decorated_definition" {
			if def := node.ChildByFieldName("definition"); def != nil {
				node = def
			}
		}

		switch node.Type() {
		case "function_definition":
			name := node.ChildByFieldName("name")
			if name == nil {
				continue
			}
			funcName := nodeText(name, source)
			if enclosing != "" {
				funcName = enclosing + "." + funcName
			}
			*decls = append(*decls, models.Declaration{
				Kind: models.KindFunction,
				Name: funcName,
				Line: lineOf(node),
				Doc:  pyDocstring(node, source),
			})
			// Nested defs inside methods are skipped; class bodies below are not.

		case "class_definition":
			name := node.ChildByFieldName("name")
			if name == nil {
				continue
			}
			className := nodeText(name, source)
			*decls = append(*decls, models.Declaration{
				Kind: models.KindClass,
				Name: className,
				Line: lineOf(node),
				Doc:  pyDocstring(node, source),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				pyWalk(body, source, className, false, decls)
			}

		case "expression_statement":
			if !topLevel {
				continue
			}
			for j := 0; j < int(node.ChildCount()); j++ {
				assign := node.Child(j)
				if assign.Type() != "assignment" {
					continue
				}
				if left := assign.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
					*decls = append(*decls, models.Declaration{
						Kind: models.KindVariable,
						Name: nodeText(left, source),
						Line: lineOf(assign),
					})
				}
			}

		case "import_statement", "import_from_statement":
			if !topLevel {
				continue
			}
			for _, mod := range pyImportedModules(node, source) {
				*decls = append(*decls, models.Declaration{
					Kind: models.KindModule,
					Name: mod,
					Line: lineOf(node),
				})
			}
		}
	}
}

// pyDocstring returns the first string expression of a definition body.
func pyDocstring(def *sitter.Node, source []byte) string {
	body := def.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Type() != "string" {
		return ""
	}
	text := nodeText(str, source)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return strings.TrimSpace(text[len(q) : len(text)-len(q)])
		}
	}
	return strings.TrimSpace(text)
}

func pyImportedModules(node *sitter.Node, source []byte) []string {
	var mods []string
	if node.Type() == "import_from_statement" {
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			mods = append(mods, nodeText(mod, source))
		}
		return mods
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			mods = append(mods, nodeText(child, source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				mods = append(mods, nodeText(name, source))
			}
		}
	}
	return mods
}
