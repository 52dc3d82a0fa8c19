// Package nostdlog reports printing through the standard log package or
// fmt.Print* outside of main packages. Library code logs through zap.
package nostdlog

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "nostdlog",
	Doc:  "prohibits the standard log package and fmt.Print* outside of main packages",
	Run:  run,
}

var forbidden = map[string]map[string]bool{
	"fmt": {
		"Print":   true,
		"Printf":  true,
		"Println": true,
	},
	"log": {
		"Print":   true,
		"Printf":  true,
		"Println": true,
		"Fatal":   true,
		"Fatalf":  true,
		"Fatalln": true,
		"Panic":   true,
		"Panicf":  true,
		"Panicln": true,
	},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) || strings.HasSuffix(filename, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
			if !ok || fn.Pkg() == nil {
				return true
			}

			if forbidden[fn.Pkg().Path()][fn.Name()] {
				pass.Reportf(call.Pos(), "use logger.Log instead of %s.%s", fn.Pkg().Name(), fn.Name())
			}

			return true
		})
	}

	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
