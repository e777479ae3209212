package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitescout/internal/types"
)

// collectBasicInfo is phase 1: title, meta description and keywords. It also
// fetches the page source once for the goquery-backed phases that follow.
func (a *Analyzer) collectBasicInfo(ctx context.Context, inv *investigation) error {
	title, err := inv.driver.PageTitle(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page title: %w", err)
	}
	inv.result.Title = title

	source, err := inv.driver.PageSource(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page source: %w", err)
	}
	inv.source = source

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse page source: %w", err)
	}
	inv.doc = doc

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		inv.result.Description = strings.TrimSpace(desc)
	}
	if kw, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				inv.result.Keywords = append(inv.result.Keywords, k)
			}
		}
	}

	return nil
}

// classifyStructure is phase 2: layout classification, semantic sections,
// and responsive breakpoints.
func (a *Analyzer) classifyStructure(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	structure := types.PageStructure{
		Headings:  make(map[string]int),
		LinkCount: doc.Find("a[href]").Length(),
		FormCount: doc.Find("form").Length(),
	}

	for _, tag := range []string{"header", "nav", "main", "aside", "article", "section", "footer"} {
		if doc.Find(tag).Length() > 0 {
			structure.Sections = append(structure.Sections, tag)
		}
	}

	for _, h := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		if n := doc.Find(h).Length(); n > 0 {
			structure.Headings[h] = n
		}
	}

	hasNav := doc.Find("nav").Length() > 0
	hasSidebar := doc.Find("aside").Length() > 0
	switch {
	case hasNav && hasSidebar:
		structure.LayoutType = "app_shell"
	case hasNav && structure.FormCount > 2:
		structure.LayoutType = "form_heavy"
	case hasNav:
		structure.LayoutType = "content_site"
	case structure.FormCount > 0:
		structure.LayoutType = "single_form"
	default:
		structure.LayoutType = "minimal"
	}

	// Media-query breakpoints declared on stylesheet links are the only ones
	// visible without fetching CSS.
	doc.Find("link[media], style[media]").Each(func(_ int, s *goquery.Selection) {
		if media, ok := s.Attr("media"); ok && strings.Contains(media, "width") {
			structure.Breakpoints = append(structure.Breakpoints, media)
		}
	})

	inv.result.Structure = structure
	return nil
}

// detectNavigation is one of the independent feature detectors (phases 5-12).
func (a *Analyzer) detectNavigation(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	nav := types.NavigationSummary{
		HasNavBar:     doc.Find("nav, [role=navigation]").Length() > 0,
		HasFooter:     doc.Find("footer").Length() > 0,
		HasSidebar:    doc.Find("aside").Length() > 0,
		HasBreadcrumb: doc.Find(`.breadcrumb, [aria-label="breadcrumb"], .breadcrumbs`).Length() > 0,
	}

	doc.Find("nav a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			nav.MenuItems = append(nav.MenuItems, text)
		}
		return len(nav.MenuItems) < 10
	})

	inv.result.Navigation = nav
	return nil
}

func (a *Analyzer) detectForms(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	forms := types.FormSummary{
		FormCount:     doc.Find("form").Length(),
		FieldCount:    doc.Find("form input, form select, form textarea").Length(),
		HasFileUpload: doc.Find(`input[type="file"]`).Length() > 0,
	}

	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		forms.FormPurposes = append(forms.FormPurposes, classifyFormPurpose(s))
	})

	inv.result.Forms = forms
	return nil
}

// classifyFormPurpose guesses what one form is for from its fields and text.
func classifyFormPurpose(form *goquery.Selection) string {
	text := strings.ToLower(form.Text())
	hasPassword := form.Find(`input[type="password"]`).Length() > 0
	hasSearch := form.Find(`input[type="search"], input[name*="search"]`).Length() > 0

	switch {
	case hasPassword && (strings.Contains(text, "register") || strings.Contains(text, "sign up")):
		return "registration"
	case hasPassword:
		return "login"
	case hasSearch:
		return "search"
	case strings.Contains(text, "subscribe") || strings.Contains(text, "newsletter"):
		return "newsletter"
	case strings.Contains(text, "contact") || strings.Contains(text, "message"):
		return "contact"
	case strings.Contains(text, "checkout") || strings.Contains(text, "payment"):
		return "checkout"
	default:
		return "general"
	}
}

func (a *Analyzer) detectAuth(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	text := strings.ToLower(doc.Text())
	source := strings.ToLower(inv.source)

	auth := types.AuthSummary{
		HasLogin:    doc.Find(`input[type="password"]`).Length() > 0 || strings.Contains(text, "sign in") || strings.Contains(text, "log in"),
		HasRegister: strings.Contains(text, "sign up") || strings.Contains(text, "register") || strings.Contains(text, "create account"),
		HasLogout:   strings.Contains(text, "sign out") || strings.Contains(text, "log out"),
		HasOAuth:    strings.Contains(source, "oauth") || strings.Contains(text, "continue with google") || strings.Contains(text, "sign in with"),
	}

	if auth.HasLogin {
		auth.Methods = append(auth.Methods, "password")
	}
	if auth.HasOAuth {
		auth.Methods = append(auth.Methods, "oauth")
	}
	if strings.Contains(text, "magic link") || strings.Contains(source, "passwordless") {
		auth.Methods = append(auth.Methods, "magic_link")
	}

	inv.result.Auth = auth
	return nil
}

func (a *Analyzer) detectEcommerce(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	text := strings.ToLower(doc.Text())

	inv.result.Ecommerce = types.EcommerceSummary{
		HasCart:     strings.Contains(text, "cart") || strings.Contains(text, "basket"),
		HasCheckout: strings.Contains(text, "checkout"),
		HasProducts: doc.Find(`.product, [class*="product"], [itemtype*="Product"]`).Length() > 0,
		HasPricing:  pricePattern.MatchString(text) || doc.Find(`.price, [class*="price"]`).Length() > 0,
	}
	return nil
}

var pricePattern = regexp.MustCompile(`[$€£]\s?\d+[.,]?\d*`)

func (a *Analyzer) detectSearch(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	search := types.SearchSummary{}
	if doc.Find(`input[type="search"]`).Length() > 0 {
		search.HasSearch = true
		search.SearchMethod = "native_input"
	} else if doc.Find(`input[name*="search" i], input[placeholder*="search" i]`).Length() > 0 {
		search.HasSearch = true
		search.SearchMethod = "text_input"
	} else if doc.Find(`form[action*="search"]`).Length() > 0 {
		search.HasSearch = true
		search.SearchMethod = "form"
	}

	inv.result.Search = search
	return nil
}

func (a *Analyzer) detectSocial(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	social := types.SocialSummary{
		HasComments: doc.Find(`#comments, .comments, [class*="comment-"]`).Length() > 0,
	}

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		for _, network := range []string{"twitter.com", "x.com", "facebook.com", "linkedin.com", "instagram.com", "youtube.com"} {
			if strings.Contains(href, network) && !seen[network] {
				seen[network] = true
				social.ShareLinks = append(social.ShareLinks, network)
			}
		}
	})

	inv.result.Social = social
	return nil
}

// techFingerprints maps a source marker to a technology name.
var techFingerprints = []struct {
	marker string
	name   string
}{
	{"__next_data__", "Next.js"},
	{"data-reactroot", "React"},
	{"react-dom", "React"},
	{"data-v-app", "Vue.js"},
	{"ng-version", "Angular"},
	{"jquery", "jQuery"},
	{"wp-content", "WordPress"},
	{"shopify", "Shopify"},
	{"bootstrap", "Bootstrap"},
	{"tailwind", "Tailwind CSS"},
	{"gtag(", "Google Analytics"},
	{"cloudflare", "Cloudflare"},
}

func (a *Analyzer) fingerprintTechStack(inv *investigation) error {
	if inv.source == "" {
		return fmt.Errorf("no page source")
	}

	source := strings.ToLower(inv.source)
	seen := make(map[string]bool)
	for _, fp := range techFingerprints {
		if strings.Contains(source, fp.marker) && !seen[fp.name] {
			seen[fp.name] = true
			inv.result.TechStack = append(inv.result.TechStack, fp.name)
		}
	}

	// Security-relevant markers double as the security feature list.
	if inv.doc != nil {
		if inv.doc.Find(`input[name*="csrf" i], meta[name="csrf-token"]`).Length() > 0 {
			inv.result.Security = append(inv.result.Security, "csrf_token")
		}
		if inv.doc.Find(`[data-sitekey], .g-recaptcha, .h-captcha`).Length() > 0 {
			inv.result.Security = append(inv.result.Security, "captcha")
		}
	}
	if strings.HasPrefix(inv.result.URL, "https://") {
		inv.result.Security = append(inv.result.Security, "https")
	}

	return nil
}

var apiEndpointPattern = regexp.MustCompile(`["'](/(?:api|graphql|rest|v\d)[a-zA-Z0-9_\-/.]*)["']`)

func (a *Analyzer) extractAPIEndpoints(inv *investigation) error {
	if inv.source == "" {
		return fmt.Errorf("no page source")
	}

	seen := make(map[string]bool)
	for _, m := range apiEndpointPattern.FindAllStringSubmatch(inv.source, -1) {
		endpoint := m[1]
		if !seen[endpoint] {
			seen[endpoint] = true
			inv.result.APIEndpoints = append(inv.result.APIEndpoints, endpoint)
		}
		if len(inv.result.APIEndpoints) >= 20 {
			break
		}
	}
	sort.Strings(inv.result.APIEndpoints)
	return nil
}

// scoreAccessibility computes a coarse 0-100 accessibility score from
// common static checks.
func (a *Analyzer) scoreAccessibility(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	score := 100.0
	var issues []string

	if missing := doc.Find("img:not([alt])").Length(); missing > 0 {
		score -= 20
		issues = append(issues, fmt.Sprintf("%d images missing alt text", missing))
	}

	unlabeled := 0
	doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("aria-label"); ok {
			return
		}
		if id, ok := s.Attr("id"); ok && doc.Find(`label[for="`+id+`"]`).Length() > 0 {
			return
		}
		if t, _ := s.Attr("type"); t == "hidden" || t == "submit" || t == "button" {
			return
		}
		unlabeled++
	})
	if unlabeled > 0 {
		score -= 20
		issues = append(issues, fmt.Sprintf("%d inputs without labels", unlabeled))
	}

	if _, ok := doc.Find("html").Attr("lang"); !ok {
		score -= 15
		issues = append(issues, "html element missing lang attribute")
	}
	if doc.Find("main, [role=main]").Length() == 0 {
		score -= 15
		issues = append(issues, "no main landmark")
	}
	if doc.Find("h1").Length() == 0 {
		score -= 10
		issues = append(issues, "no h1 heading")
	}

	if score < 0 {
		score = 0
	}

	inv.result.Accessibility = types.AccessibilityReport{Score: score, Issues: issues}
	inv.result.Performance.DOMNodeCount = doc.Find("*").Length()
	return nil
}

func (a *Analyzer) checkMobileCompatibility(inv *investigation) error {
	doc := inv.doc
	if doc == nil {
		return fmt.Errorf("no parsed page source")
	}

	hasViewport := doc.Find(`meta[name="viewport"]`).Length() > 0
	responsive := hasViewport &&
		(len(inv.result.Structure.Breakpoints) > 0 ||
			containsAny(inv.result.TechStack, "Bootstrap", "Tailwind CSS") ||
			strings.Contains(inv.source, "@media"))

	inv.result.Mobile = types.MobileReport{
		HasViewportMeta: hasViewport,
		Responsive:      responsive,
	}
	return nil
}

func containsAny(list []string, values ...string) bool {
	for _, v := range values {
		for _, item := range list {
			if item == v {
				return true
			}
		}
	}
	return false
}
