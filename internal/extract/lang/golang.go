package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/pders01/repolens/internal/models"
)

type goExtractor struct{}

func (goExtractor) DetectDeclarations(source []byte) ([]models.Declaration, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("go parse failed: %w", err)
	}
	defer tree.Close()

	var decls []models.Declaration
	root := tree.RootNode()

	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case "package_clause":
			for j := 0; j < int(node.ChildCount()); j++ {
				if child := node.Child(j); child.Type() == "package_identifier" {
					decls = append(decls, models.Declaration{
						Kind: models.KindModule,
						Name: nodeText(child, source),
						Line: lineOf(node),
					})
				}
			}

		case "function_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				decls = append(decls, models.Declaration{
					Kind: models.KindFunction,
					Name: nodeText(name, source),
					Line: lineOf(node),
					Doc:  leadingComment(node, source),
				})
			}

		case "method_declaration":
			name := node.ChildByFieldName("name")
			if name == nil {
				continue
			}
			funcName := nodeText(name, source)
			if recv := goReceiverType(node, source); recv != "" {
				funcName = recv + "." + funcName
			}
			decls = append(decls, models.Declaration{
				Kind: models.KindFunction,
				Name: funcName,
				Line: lineOf(node),
				Doc:  leadingComment(node, source),
			})

		case "type_declaration":
			for j := 0; j < int(node.ChildCount()); j++ {
				spec := node.Child(j)
				if spec.Type() != "type_spec" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					decls = append(decls, models.Declaration{
						Kind: models.KindClass,
						Name: nodeText(name, source),
						Line: lineOf(spec),
						Doc:  leadingComment(node, source),
					})
				}
			}

		case "var_declaration", "const_declaration":
			decls = append(decls, goValueSpecs(node, source)...)
		}
	}

	return decls, nil
}

// goReceiverType unwraps the receiver parameter list down to the type name,
// handling pointer receivers.
func goReceiverType(method *sitter.Node, source []byte) string {
	recv := method.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.ChildCount()); i++ {
		param := recv.Child(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		for j := 0; j < int(param.ChildCount()); j++ {
			child := param.Child(j)
			switch child.Type() {
			case "type_identifier":
				return nodeText(child, source)
			case "pointer_type", "generic_type":
				for k := 0; k < int(child.ChildCount()); k++ {
					if inner := child.Child(k); inner.Type() == "type_identifier" {
						return nodeText(inner, source)
					}
				}
			}
		}
	}
	return ""
}

func goValueSpecs(node *sitter.Node, source []byte) []models.Declaration {
	var decls []models.Declaration
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "var_spec" || n.Type() == "const_spec" {
			for i := 0; i < int(n.ChildCount()); i++ {
				if child := n.Child(i); child.Type() == "identifier" {
					decls = append(decls, models.Declaration{
						Kind: models.KindVariable,
						Name: nodeText(child, source),
						Line: lineOf(n),
					})
				}
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return decls
}
