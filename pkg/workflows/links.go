package workflows

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/html"
)

// groupRootPattern matches URLs that are exactly a numeric group root,
// with or without a trailing slash. Anything deeper (posts, members,
// query strings) is not a postable target.
var groupRootPattern = regexp.MustCompile(`^https?://[^/]+/groups/\d+/?$`)

// LinkPolicy decides which group links a job may navigate to. Denied
// patterns take precedence; an empty allowed list allows everything
// not denied.
type LinkPolicy struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewLinkPolicy compiles the allow and deny glob patterns.
func NewLinkPolicy(allowed, denied []string) (*LinkPolicy, error) {
	policy := &LinkPolicy{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		policy.allowedPatterns = append(policy.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		policy.deniedPatterns = append(policy.deniedPatterns, g)
	}

	return policy, nil
}

// IsAllowed returns true if the link passes the pattern rules.
func (p *LinkPolicy) IsAllowed(link string) bool {
	for _, pattern := range p.deniedPatterns {
		if pattern.Match(link) {
			return false
		}
	}

	if len(p.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range p.allowedPatterns {
		if pattern.Match(link) {
			return true
		}
	}

	return false
}

// PartitionLinks splits links into fixed-size contiguous chunks in
// input order, one chunk per session in input order. The link at index
// i goes to session i/perSession; links past the last session are
// dropped. Sessions past the last link get an empty chunk.
func PartitionLinks(links []string, sessionCount, perSession int) [][]string {
	chunks := make([][]string, sessionCount)
	if perSession < 1 {
		return chunks
	}

	for i, link := range links {
		s := i / perSession
		if s >= sessionCount {
			break
		}
		chunks[s] = append(chunks[s], link)
	}
	return chunks
}

// DiscoverGroupLinks scans the page HTML for anchors whose resolved
// URL is exactly a numeric group root. Relative hrefs are resolved
// against baseURL. Results keep document order, are canonicalized
// without a trailing slash, and are deduplicated.
func DiscoverGroupLinks(pageHTML, baseURL string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	var links []string
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if target, ok := resolveGroupRoot(n, base); ok && !seen[target] {
				seen[target] = true
				links = append(links, target)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// resolveGroupRoot extracts the anchor's href, resolves it, and checks
// the group-root shape.
func resolveGroupRoot(n *html.Node, base *url.URL) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "href" {
			continue
		}

		ref, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil {
			return "", false
		}

		resolved := base.ResolveReference(ref).String()
		if !groupRootPattern.MatchString(resolved) {
			return "", false
		}
		return strings.TrimSuffix(resolved, "/"), true
	}
	return "", false
}
