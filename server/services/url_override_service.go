package services

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

var overrideKeySeparators = regexp.MustCompile(`[\s·ㆍ_./()\-]+`)

// URLOverrideService resolves operator-maintained official URL overrides from
// a properties file. Keys may be a raw product key or a pipe-joined
// type|provider|name combination; values are URLs.
type URLOverrideService struct {
	path      string
	logger    LoggerInterface
	overrides map[string]string
}

// NewURLOverrideService loads the override file once at startup. A missing or
// unreadable file logs a warning and leaves the map empty.
func NewURLOverrideService(path string, logger LoggerInterface) *URLOverrideService {
	if logger == nil {
		logger = newDefaultLogger()
	}

	service := &URLOverrideService{
		path:      path,
		logger:    logger,
		overrides: map[string]string{},
	}
	service.load()
	return service
}

func (s *URLOverrideService) load() {
	if strings.TrimSpace(s.path) == "" {
		return
	}

	file, err := os.Open(s.path)
	if err != nil {
		s.logger.Warn("product URL override file not loaded", "path", s.path, "error", err.Error())
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	loaded := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		separator := strings.IndexByte(line, '=')
		if separator <= 0 || separator >= len(line)-1 {
			continue
		}

		key := normalizeOverrideKey(line[:separator])
		value := ensureURLScheme(strings.TrimSpace(line[separator+1:]))
		if key == "" || value == "" {
			continue
		}
		s.overrides[key] = value
		loaded++
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("product URL override file read failed", "path", s.path, "error", err.Error())
		s.overrides = map[string]string{}
		return
	}
	if loaded > 0 {
		s.logger.Info("product URL overrides loaded", "path", s.path, "count", loaded)
	}
}

// Resolve returns the override URL for a product, or empty when none matches.
// Candidates are tried from most to least specific.
func (s *URLOverrideService) Resolve(productType, providerName, productName, productKey string) string {
	candidates := []string{
		productKey,
		productType + "|" + providerName + "|" + productName,
		providerName + "|" + productName,
		productType + "|" + productName,
	}

	for _, candidate := range candidates {
		if url, ok := s.overrides[normalizeOverrideKey(candidate)]; ok {
			return url
		}
	}
	return ""
}

// ResolveOrDefault resolves an override and falls back to the catalog URL
// when none matches.
func (s *URLOverrideService) ResolveOrDefault(productType, providerName, productName, productKey, fallbackURL string) string {
	if url := s.Resolve(productType, providerName, productName, productKey); url != "" {
		return url
	}
	return fallbackURL
}

// Count reports how many overrides are loaded.
func (s *URLOverrideService) Count() int {
	return len(s.overrides)
}

// normalizeOverrideKey canonicalizes a lookup key. Plain keys are lowered with
// whitespace stripped, pipe-joined keys are normalized per token so corporate
// suffixes and separator punctuation never break a match.
func normalizeOverrideKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "|") {
		return strings.Join(strings.Fields(strings.ToLower(trimmed)), "")
	}

	tokens := strings.Split(trimmed, "|")
	for i, token := range tokens {
		tokens[i] = normalizeOverrideToken(token)
	}
	return strings.Join(tokens, "|")
}

func normalizeOverrideToken(token string) string {
	lowered := strings.ToLower(strings.TrimSpace(token))
	lowered = strings.ReplaceAll(lowered, "주식회사", "")
	lowered = strings.ReplaceAll(lowered, "(주)", "")
	return overrideKeySeparators.ReplaceAllString(lowered, "")
}

// ensureURLScheme prefixes bare hosts with https.
func ensureURLScheme(url string) string {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}
