package internal

import (
	"slices"
	"strings"
)

// ruleEffect is the decision a matched access rule applies.
type ruleEffect int

const (
	effectPermit ruleEffect = iota
	effectDeny
	effectRequireAuth
)

// AccessRule binds a path pattern (and optionally methods) to an access
// decision. Rules are declared through the fluent builder on SecurityConfig
// and evaluated in declaration order; the first matching rule wins.
type AccessRule struct {
	strategy   Strategy
	onFailure  HandlerFunc
	pattern    string
	redirectTo string
	methods    []string
	effect     ruleEffect
	anyRoute   bool
	prefix     bool
}

// matches reports whether the rule applies to the given normalized path and
// method. Paths must be normalized before the call.
func (r *AccessRule) matches(method, path string) bool {
	if len(r.methods) > 0 && !slices.Contains(r.methods, method) {
		return false
	}
	if r.anyRoute {
		return true
	}
	if r.prefix {
		// "/admin/**" covers "/admin" itself and everything below it.
		base := strings.TrimSuffix(r.pattern, "/**")
		if base == "" {
			return true
		}
		return path == base || strings.HasPrefix(path, base+"/")
	}
	return path == r.pattern
}

// RuleBuilder configures a single access rule. Terminal methods (PermitAll,
// DenyAll, RequireAuth) register the rule with the table.
type RuleBuilder struct {
	table *RuleTable
	rule  AccessRule
}

// Methods restricts the rule to the given HTTP methods. Without it the rule
// applies to every method.
func (b *RuleBuilder) Methods(methods ...string) *RuleBuilder {
	for _, m := range methods {
		b.rule.methods = append(b.rule.methods, strings.ToUpper(m))
	}
	return b
}

// RedirectTo sends unauthenticated requests to url with a 302 instead of
// the default 401. Only meaningful together with RequireAuth.
func (b *RuleBuilder) RedirectTo(url string) *RuleBuilder {
	b.rule.redirectTo = url
	return b
}

// OnFailure installs a custom handler invoked when the rule denies the
// request. It takes precedence over RedirectTo.
func (b *RuleBuilder) OnFailure(h HandlerFunc) *RuleBuilder {
	b.rule.onFailure = h
	return b
}

// PermitAll allows matching requests through without authentication.
func (b *RuleBuilder) PermitAll() *RuleTable {
	b.rule.effect = effectPermit
	return b.table.add(b.rule)
}

// DenyAll rejects matching requests with 403 regardless of credentials.
func (b *RuleBuilder) DenyAll() *RuleTable {
	b.rule.effect = effectDeny
	return b.table.add(b.rule)
}

// RequireAuth admits matching requests only when the strategy authenticates
// them. A nil strategy falls back to the table's default strategy.
func (b *RuleBuilder) RequireAuth(strategy ...Strategy) *RuleTable {
	b.rule.effect = effectRequireAuth
	if len(strategy) > 0 {
		b.rule.strategy = strategy[0]
	}
	return b.table.add(b.rule)
}

// RuleTable holds access rules in declaration order.
//
// When the table is empty every request passes through untouched. As soon
// as one rule is registered the table fails closed: requests matching no
// rule are rejected with 403.
type RuleTable struct {
	defaultStrategy Strategy
	rules           []AccessRule
}

// NewRuleTable creates an empty rule table. The default strategy backs
// RequireAuth rules that name no strategy of their own.
func NewRuleTable(defaultStrategy Strategy) *RuleTable {
	return &RuleTable{defaultStrategy: defaultStrategy}
}

// Route starts a rule scoped to a path pattern. The pattern is either an
// exact normalized path ("/admin") or a prefix glob ("/admin/**").
func (t *RuleTable) Route(pattern string) *RuleBuilder {
	rule := AccessRule{}
	if strings.HasSuffix(pattern, "/**") {
		rule.prefix = true
		rule.pattern = NormalizePath(strings.TrimSuffix(pattern, "/**")) + "/**"
		if rule.pattern == "//**" {
			rule.pattern = "/**"
		}
	} else {
		rule.pattern = NormalizePath(pattern)
	}
	return &RuleBuilder{table: t, rule: rule}
}

// AnyRoute starts a rule matching every request. Typically declared last as
// a catch-all.
func (t *RuleTable) AnyRoute() *RuleBuilder {
	return &RuleBuilder{table: t, rule: AccessRule{anyRoute: true}}
}

func (t *RuleTable) add(rule AccessRule) *RuleTable {
	if rule.effect == effectRequireAuth && rule.strategy == nil {
		rule.strategy = t.defaultStrategy
	}
	t.rules = append(t.rules, rule)
	return t
}

// Empty reports whether no rules are registered.
func (t *RuleTable) Empty() bool {
	return len(t.rules) == 0
}

// Find returns the first rule matching the method and normalized path, or
// nil when no rule matches.
func (t *RuleTable) Find(method, path string) *AccessRule {
	method = strings.ToUpper(method)
	path = NormalizePath(path)
	for i := range t.rules {
		if t.rules[i].matches(method, path) {
			return &t.rules[i]
		}
	}
	return nil
}
