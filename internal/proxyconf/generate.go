package proxyconf

import (
	"fmt"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/config"
)

const (
	SnippetSecurityHeaders = "security_headers"
	SnippetOriginRestrict  = "origin_restrict"
	SnippetProxyHeaders    = "proxy_headers"
)

// NotConfiguredBody is the response for any subdomain without a route.
const NotConfiguredBody = "not configured"

// Build returns the structured proxy config for domain and profile.
func Build(domain string, profile config.Profile) (*Caddyfile, error) {
	if err := config.ValidateDomain(domain); err != nil {
		return nil, err
	}
	spec, ok := catalog.Lookup(profile)
	if !ok {
		return nil, fmt.Errorf("proxyconf: unknown profile %q", profile)
	}

	c := &Caddyfile{
		Header: []string{
			fmt.Sprintf("Generated by hostforge for %s (profile: %s).", domain, profile),
			"Regenerated on every run. Change the profile rather than editing this file.",
		},
		Global: []Directive{
			D("admin localhost:2019"),
			B("log", D("output stdout"), D("format json")),
		},
		Snippets: baseSnippets(),
	}

	c.Sites = append(c.Sites, Site{
		Address: domain,
		Body: []Directive{
			D("import " + SnippetSecurityHeaders),
			D(fmt.Sprintf("respond %q 200", domain+" is up")),
		},
	})

	for _, r := range spec.Routes {
		c.Sites = append(c.Sites, exampleSite(domain, r))
	}

	c.Sites = append(c.Sites, Site{
		Address: "*." + domain,
		Comment: "Catch-all: undeclared subdomains never reach an upstream.",
		Body: []Directive{
			D("import " + SnippetSecurityHeaders),
			D(fmt.Sprintf("respond %q 404", NotConfiguredBody)),
		},
	})

	return c, nil
}

// Generate renders the proxy config text for domain and profile.
func Generate(domain string, profile config.Profile) (string, error) {
	c, err := Build(domain, profile)
	if err != nil {
		return "", err
	}
	return c.Render(), nil
}

func baseSnippets() []Snippet {
	return []Snippet{
		{
			Name: SnippetSecurityHeaders,
			Body: []Directive{
				B("header",
					D(`Strict-Transport-Security "max-age=31536000; includeSubDomains"`),
					D(`X-Content-Type-Options "nosniff"`),
					D(`X-Frame-Options "DENY"`),
					D(`Referrer-Policy "strict-origin-when-cross-origin"`),
					D(`-Server`),
				),
			},
		},
		{
			Name: SnippetOriginRestrict,
			Body: []Directive{
				D("@external not remote_ip private_ranges"),
				D(`respond @external "forbidden" 403`),
			},
		},
		{
			Name: SnippetProxyHeaders,
			Body: []Directive{
				D("header_up X-Real-IP {remote_host}"),
				D("header_up X-Forwarded-For {remote_host}"),
				D("header_up X-Forwarded-Proto {scheme}"),
			},
		},
	}
}

func exampleSite(domain string, r catalog.Route) Site {
	return Site{
		Address:   r.Subdomain + "." + domain,
		Comment:   "Example: " + r.Comment,
		Commented: true,
		Body: []Directive{
			D("import " + SnippetSecurityHeaders),
			D("import " + SnippetOriginRestrict),
			B("reverse_proxy "+r.Upstream, D("import "+SnippetProxyHeaders)),
		},
	}
}
