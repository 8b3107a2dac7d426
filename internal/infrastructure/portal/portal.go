package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

const (
	defaultUserAgent    = "TestVaultAlerts/1.0"
	defaultLoginTimeout = 5 * time.Second
	fetchChunkSize      = 256 << 10

	logoutSelector   = `a[href*="/organizations/logout/"]`
	companySelector  = `a[href*="person/list/"]`
	personSelector   = `a[href*="person/update/"]`
	documentSelector = `a[href*="/documents/download/"]`
)

var (
	baseExpr   = regexp.MustCompile(`^(.*)/list/$`)
	personExpr = regexp.MustCompile(`/person/update/(\d+)`)
)

// Options tunes the HTTP side of the portal session.
type Options struct {
	Client       *http.Client
	UserAgent    string
	LoginTimeout time.Duration
}

// Portal is a cookie-authenticated session against the TestVault web portal.
type Portal struct {
	client       *http.Client
	clientsURL   string
	baseURL      string
	userAgent    string
	loginTimeout time.Duration
	logger       *slog.Logger
}

var (
	_ ports.Session       = (*Portal)(nil)
	_ ports.Authenticator = (*Portal)(nil)
)

// New derives the portal base from clientsURL, which must end in /list/.
func New(clientsURL string, opts Options, logger *slog.Logger) (*Portal, error) {
	m := baseExpr.FindStringSubmatch(clientsURL)
	if m == nil {
		return nil, fmt.Errorf("no base URL found in %s: %w", clientsURL, domain.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		withJar := *client
		withJar.Jar = jar
		client = &withJar
	}

	p := &Portal{
		client:       client,
		clientsURL:   clientsURL,
		baseURL:      m[1],
		userAgent:    opts.UserAgent,
		loginTimeout: opts.LoginTimeout,
		logger:       logger,
	}
	if p.userAgent == "" {
		p.userAgent = defaultUserAgent
	}
	if p.loginTimeout <= 0 {
		p.loginTimeout = defaultLoginTimeout
	}
	return p, nil
}

// Login submits the portal's login form and confirms the session by looking for the logout link.
// A rejected login is reported through LoginResult; transport failures are returned as errors.
func (p *Portal) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	page, pageURL, err := p.fetchDocument(ctx, p.clientsURL, "")
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("open login page: %w", err)
	}
	if loggedIn(page) {
		return domain.LoginResult{OK: true}, nil
	}

	form, err := parseLoginForm(page, pageURL)
	if err != nil {
		return domain.LoginResult{OK: false, Reason: err.Error()}, nil
	}
	form.values.Set(form.userField, username)
	form.values.Set(form.passField, password)

	ctx, cancel := context.WithTimeout(ctx, p.loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.action, strings.NewReader(form.values.Encode()))
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", pageURL.String())
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.LoginResult{OK: false, Reason: "timed out waiting for login confirmation"}, nil
		}
		return domain.LoginResult{}, fmt.Errorf("submit login: %w", err)
	}
	defer resp.Body.Close()

	after, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("parse login response: %w", err)
	}
	if loggedIn(after) {
		p.logger.Info("portal login confirmed")
		return domain.LoginResult{OK: true}, nil
	}

	return domain.LoginResult{OK: false, Reason: "logout link not found after login, check portal credentials"}, nil
}

// ListClients visits every company page and takes the first person link that is not the operator's own account.
func (p *Portal) ListClients(ctx context.Context) ([]domain.Client, error) {
	page, pageURL, err := p.fetchDocument(ctx, p.clientsURL, "")
	if err != nil {
		return nil, fmt.Errorf("open clients page: %w", err)
	}

	type company struct {
		url  string
		name string
	}
	var companies []company
	page.Find(companySelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		abs, err := pageURL.Parse(href)
		if err != nil {
			return
		}
		companies = append(companies, company{url: abs.String(), name: strings.TrimSpace(s.Text())})
	})

	seen := map[string]struct{}{}
	var clients []domain.Client
	for _, c := range companies {
		doc, _, err := p.fetchDocument(ctx, c.url, pageURL.String())
		if err != nil {
			p.logger.Warn("company page unavailable", "company", c.name, "error", err)
			continue
		}
		id, ok := firstPersonID(doc)
		if !ok {
			p.logger.Debug("no client link on company page", "company", c.name)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		first, last := parseFirstLast(c.name)
		clients = append(clients, domain.Client{ID: id, First: first, Last: last})
	}

	return clients, nil
}

// ListDocuments returns the client's downloadable documents in page order, which the portal sorts newest first.
func (p *Portal) ListDocuments(ctx context.Context, client domain.Client) ([]domain.DocumentRef, error) {
	target := fmt.Sprintf("%s/documents/%s/", p.baseURL, client.ID)
	page, pageURL, err := p.fetchDocument(ctx, target, p.clientsURL)
	if err != nil {
		return nil, err
	}

	var docs []domain.DocumentRef
	page.Find(documentSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, err := pageURL.Parse(href)
		if err != nil {
			return
		}
		title, _ := s.Attr("title")
		docs = append(docs, domain.DocumentRef{URL: abs.String(), Title: strings.TrimSpace(title)})
	})
	return docs, nil
}

// Fetch streams the document body into w in fixed-size chunks.
func (p *Portal) Fetch(ctx context.Context, docURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portal returned %s", resp.Status)
	}

	if _, err := io.CopyBuffer(w, resp.Body, make([]byte, fetchChunkSize)); err != nil {
		return fmt.Errorf("stream document: %w", err)
	}
	return nil
}

func (p *Portal) fetchDocument(ctx context.Context, pageURL, referer string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("portal returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, resp.Request.URL, nil
}

func loggedIn(doc *goquery.Document) bool {
	return doc.Find(logoutSelector).Length() > 0
}

func firstPersonID(doc *goquery.Document) (string, bool) {
	var id string
	doc.Find(personSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		m := personExpr.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		if strings.EqualFold(strings.TrimSpace(s.Text()), "my account") {
			return true
		}
		id = m[1]
		return false
	})
	return id, id != ""
}

// parseFirstLast splits a display name on whitespace and keeps the first two tokens.
func parseFirstLast(display string) (string, string) {
	parts := strings.Fields(display)
	var first, last string
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
