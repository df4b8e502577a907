package credentials

import (
	"os"
	"testing"
)

func TestResolveStatic(t *testing.T) {
	c := Resolve("anthropic", Static{Secret: "sk-ant-test"})
	v, err := c.Value(nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "sk-ant-test" {
		t.Errorf("Value() = %q, want sk-ant-test", v)
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "env-secret")
	c := Resolve("groq", Env{Variable: "TEST_PROVIDER_KEY"})
	v, err := c.Value(nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "env-secret" {
		t.Errorf("Value() = %q, want env-secret", v)
	}
}

func TestResolveEnvMissingDeferred(t *testing.T) {
	os.Unsetenv("TEST_PROVIDER_KEY_UNSET")
	c := Resolve("groq", Env{Variable: "TEST_PROVIDER_KEY_UNSET"})
	// Construction never fails; only Value() reports the missing key.
	_, err := c.Value(nil)
	var missing *ErrAPIKeyMissing
	if !asErrAPIKeyMissing(err, &missing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestResolveDynamicDeferredLookup(t *testing.T) {
	c := Resolve("llama", Dynamic{KeyName: "user_supplied"})

	_, err := c.Value(nil)
	if err == nil {
		t.Fatal("expected error when dynamic credential not supplied")
	}

	v, err := c.Value(map[string]string{"user_supplied": "dyn-secret"})
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "dyn-secret" {
		t.Errorf("Value() = %q, want dyn-secret", v)
	}
}

func TestResolveNone(t *testing.T) {
	c := Resolve("local", None{})
	v, err := c.Value(nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "" {
		t.Errorf("Value() = %q, want empty for None location", v)
	}
}

func TestResolveFileMissing(t *testing.T) {
	c := Resolve("anthropic", File{Path: "/nonexistent/path/to/secret"})
	_, err := c.Value(nil)
	if err == nil {
		t.Fatal("expected error for missing credential file")
	}
}

func asErrAPIKeyMissing(err error, target **ErrAPIKeyMissing) bool {
	e, ok := err.(*ErrAPIKeyMissing)
	if !ok {
		return false
	}
	*target = e
	return true
}
