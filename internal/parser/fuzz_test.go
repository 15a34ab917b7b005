package parser_test

import (
	"testing"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/parser"
	"github.com/funvibe/weaver/internal/prettyprinter"
)

// FuzzParseBody feeds arbitrary bodies to the parser. It must never panic,
// and a body it accepts must survive printing and cloning.
func FuzzParseBody(f *testing.F) {
	f.Add("var x = a + b * 2; return x;")
	f.Add("if (a > 0) return a; else { return -a; }")
	f.Add("await foreach (var x in proceed.asyncEnumerable()) { yield return x; } yield break;")
	f.Add("invoke.final(other).Name = \"x\"; return invoke.base.Add(1, 2);")
	f.Add("if (a) goto done; done: ;")
	f.Add("((((((((((((a))))))))))))")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4096 {
			return
		}
		b, errs := parser.ParseBody(src, parser.WithLookup(lookup))
		if len(errs) > 0 {
			return
		}
		if b == nil {
			t.Fatalf("no block and no errors for %q", src)
		}
		if prettyprinter.PrintBlock(b) == "" {
			t.Fatalf("empty rendering for %q", src)
		}
		if got, want := ast.Dump(ast.CloneBlock(b)), ast.Dump(b); got != want {
			t.Fatalf("clone differs for %q:\n%s\n%s", src, got, want)
		}
	})
}
