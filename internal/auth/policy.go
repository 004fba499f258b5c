package auth

import (
	"net/http"
	"strings"

	"github.com/ayush/event-registration/backend/internal/models"
)

// Access is what a Rule demands of the caller.
type Access int

const (
	PermitAll Access = iota
	Authenticated
	HasAnyRole
)

// Rule gates requests whose path matches Pattern (and Method, when set).
// A Pattern ending in "/**" matches the prefix itself and everything below
// it. A "*" segment matches exactly one path segment. Anything else is
// compared literally.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
	Roles   []models.Role
}

func (r Rule) Matches(method, path string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		if prefix == "" || path == prefix {
			return true
		}
		if strings.HasPrefix(path, prefix+"/") {
			return true
		}
		return strings.Contains(prefix, "*") && matchSegments(prefix, path, true)
	}
	if strings.Contains(r.Pattern, "*") {
		return matchSegments(r.Pattern, path, false)
	}
	return path == r.Pattern
}

func matchSegments(pattern, path string, prefixOnly bool) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(got) < len(want) || (!prefixOnly && len(got) != len(want)) {
		return false
	}
	for i, seg := range want {
		if seg != "*" && seg != got[i] {
			return false
		}
	}
	return true
}

// Permits reports whether the caller satisfies the rule. id is nil for
// anonymous requests.
func (r Rule) Permits(id *Identity) bool {
	switch r.Access {
	case PermitAll:
		return true
	case Authenticated:
		return id != nil
	case HasAnyRole:
		if id == nil {
			return false
		}
		for _, role := range r.Roles {
			if id.Role == role {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Policy is an ordered rule table evaluated first-match-wins. Paths are
// matched after BasePath is stripped, so "/api/public/login" and
// "/public/login" hit the same rule.
type Policy struct {
	BasePath string
	Rules    []Rule
	// Fallback applies when no rule matches.
	Fallback Rule
}

// DefaultRules is the route table for the event registration API.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/public/**", Access: PermitAll},
		{Method: http.MethodGet, Pattern: "/events/public", Access: PermitAll},
		{Method: http.MethodGet, Pattern: "/events/*/image", Access: PermitAll},
		{Pattern: "/oauth2/**", Access: PermitAll},
		{Pattern: "/login/oauth2/**", Access: PermitAll},
		{Method: http.MethodGet, Pattern: "/health", Access: PermitAll},
		{Pattern: "/admin/**", Access: HasAnyRole, Roles: []models.Role{models.RoleAdmin}},
		{Pattern: "/user/**", Access: HasAnyRole, Roles: []models.Role{models.RoleUser, models.RoleAdmin}},
		{Pattern: "/register/**", Access: HasAnyRole, Roles: []models.Role{models.RoleUser, models.RoleAdmin}},
	}
}

func NewPolicy(basePath string, rules ...Rule) *Policy {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Policy{
		BasePath: strings.TrimRight(basePath, "/"),
		Rules:    rules,
		Fallback: Rule{Pattern: "/**", Access: Authenticated},
	}
}

// Match returns the first rule matching the request, or the fallback.
func (p *Policy) Match(method, path string) Rule {
	path = p.normalize(path)
	for _, r := range p.Rules {
		if r.Matches(method, path) {
			return r
		}
	}
	return p.Fallback
}

func (p *Policy) Allows(method, path string, id *Identity) bool {
	return p.Match(method, path).Permits(id)
}

func (p *Policy) normalize(path string) string {
	if path == "" {
		path = "/"
	}
	if p.BasePath != "" {
		if path == p.BasePath {
			return "/"
		}
		if rest, ok := strings.CutPrefix(path, p.BasePath+"/"); ok {
			path = "/" + rest
		}
	}
	if path = strings.TrimRight(path, "/"); path == "" {
		path = "/"
	}
	return path
}
