package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/pders01/repolens/internal/models"
)

type jsExtractor struct {
	typescript bool
}

func (e jsExtractor) DetectDeclarations(source []byte) ([]models.Declaration, error) {
	parser := sitter.NewParser()
	if e.typescript {
		parser.SetLanguage(typescript.GetLanguage())
	} else {
		parser.SetLanguage(javascript.GetLanguage())
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("javascript parse failed: %w", err)
	}
	defer tree.Close()

	var decls []models.Declaration
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		jsCollect(root.Child(i), source, &decls)
	}
	return decls, nil
}

func jsCollect(node *sitter.Node, source []byte, decls *[]models.Declaration) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			*decls = append(*decls, models.Declaration{
				Kind: models.KindFunction,
				Name: nodeText(name, source),
				Line: lineOf(node),
				Doc:  leadingComment(node, source),
			})
		}

	case "class_declaration":
		name := node.ChildByFieldName("name")
		if name == nil {
			return
		}
		className := nodeText(name, source)
		*decls = append(*decls, models.Declaration{
			Kind: models.KindClass,
			Name: className,
			Line: lineOf(node),
			Doc:  leadingComment(node, source),
		})
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				method := body.Child(i)
				if method.Type() != "method_definition" {
					continue
				}
				if mName := method.ChildByFieldName("name"); mName != nil {
					*decls = append(*decls, models.Declaration{
						Kind: models.KindFunction,
						Name: className + "." + nodeText(mName, source),
						Line: lineOf(method),
					})
				}
			}
		}

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			declarator := node.Child(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			if name == nil || name.Type() != "identifier" {
				continue
			}
			kind := models.KindVariable
			if value := declarator.ChildByFieldName("value"); value != nil {
				switch value.Type() {
				case "arrow_function", "function_expression", "function", "generator_function":
					kind = models.KindFunction
				}
			}
			*decls = append(*decls, models.Declaration{
				Kind: kind,
				Name: nodeText(name, source),
				Line: lineOf(declarator),
				Doc:  leadingComment(node, source),
			})
		}

	case "import_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			text := nodeText(src, source)
			if len(text) >= 2 {
				text = text[1 : len(text)-1] // strip quotes
			}
			*decls = append(*decls, models.Declaration{
				Kind: models.KindModule,
				Name: text,
				Line: lineOf(node),
			})
		}

	case "export_statement":
		// export function f() {} / export class C {} / export const x = ...
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			jsCollect(decl, source, decls)
		}

	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		// TypeScript-only shapes; grouped with classes.
		if name := node.ChildByFieldName("name"); name != nil {
			*decls = append(*decls, models.Declaration{
				Kind: models.KindClass,
				Name: nodeText(name, source),
				Line: lineOf(node),
				Doc:  leadingComment(node, source),
			})
		}
	}
}
