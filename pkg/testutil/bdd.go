package testutil

import "testing"

// Given, When and Then run one scenario step as a named subtest. Steps of a
// scenario share state through the enclosing test, so once a step fails the
// later ones are skipped instead of failing on half-built fixtures.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then", desc, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	name := keyword + " " + desc
	if t.Failed() {
		t.Run(name, func(t *testing.T) {
			t.Skip("skipped after an earlier step failed")
		})
		return false
	}
	return t.Run(name, fn)
}
