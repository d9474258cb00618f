package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"

	Unknown = "Unknown"
	Other   = "Other"
)

// DeviceInfo represents parsed device information
type DeviceInfo struct {
	DeviceType string // Desktop, Mobile, Tablet, Bot
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows 10, macOS, Android, etc.
	Raw        string // Original User-Agent string
}

// rule maps any of the lowercase needles to a label; rules are checked in order
type rule struct {
	label   string
	needles []string
	unless  string
}

// Bot detection precedes tablet, tablet precedes mobile.
var deviceRules = []rule{
	{label: DeviceBot, needles: []string{"bot", "crawl", "spider"}},
	{label: DeviceTablet, needles: []string{"tablet", "ipad"}},
	{label: DeviceMobile, needles: []string{"mobile", "android", "iphone"}},
}

var browserRules = []rule{
	{label: "Edge", needles: []string{"edg/", "edge/"}},
	{label: "Opera", needles: []string{"opr/", "opera"}},
	{label: "Chrome", needles: []string{"chrome/"}},
	{label: "Firefox", needles: []string{"firefox/"}},
	{label: "Safari", needles: []string{"safari/"}, unless: "chrome"},
	{label: "Internet Explorer", needles: []string{"msie", "trident"}},
}

var osRules = []rule{
	{label: "Windows 11", needles: []string{"windows nt 11"}},
	{label: "Windows 10", needles: []string{"windows nt 10"}},
	{label: "Windows", needles: []string{"windows"}},
	// iOS agents also carry "like Mac OS X"
	{label: "iOS", needles: []string{"iphone", "ipad"}},
	{label: "macOS", needles: []string{"mac os x"}},
	{label: "Android", needles: []string{"android"}},
	{label: "Linux", needles: []string{"linux"}},
}

// Parser classifies User-Agent strings by ordered substring rules.
// When a uap-go regex set is loaded it names browsers and systems the rules leave as Other.
type Parser struct {
	uap *uaparser.Parser
	log *zap.Logger
}

// NewParser creates a parser without the uap-go fallback.
func NewParser(log *zap.Logger) *Parser {
	return &Parser{log: log}
}

// NewParserWithRegexes creates a parser backed by the uap-go regexes file.
func NewParserWithRegexes(regexFilePath string, log *zap.Logger) (*Parser, error) {
	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file %s: %w", regexFilePath, err)
	}

	uap, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))

	return &Parser{uap: uap, log: log}, nil
}

// Parse returns device type, browser and OS for a User-Agent string.
// An empty string yields Unknown for every field.
func (p *Parser) Parse(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{DeviceType: Unknown, Browser: Unknown, OS: Unknown}
	}

	ua := strings.ToLower(userAgent)
	info := DeviceInfo{
		DeviceType: match(ua, deviceRules, DeviceDesktop),
		Browser:    match(ua, browserRules, Other),
		OS:         match(ua, osRules, Other),
		Raw:        userAgent,
	}

	if p.uap != nil && (info.Browser == Other || info.OS == Other) {
		client := p.uap.Parse(userAgent)
		if info.Browser == Other && known(client.UserAgent.Family) {
			info.Browser = client.UserAgent.Family
		}
		if info.OS == Other && known(client.Os.Family) {
			info.OS = client.Os.Family
		}
	}

	p.log.Debug("parsed User-Agent",
		zap.String("device_type", info.DeviceType),
		zap.String("browser", info.Browser),
		zap.String("os", info.OS),
	)

	return info
}

func match(ua string, rules []rule, fallback string) string {
	for _, r := range rules {
		if r.unless != "" && strings.Contains(ua, r.unless) {
			continue
		}
		for _, needle := range r.needles {
			if strings.Contains(ua, needle) {
				return r.label
			}
		}
	}
	return fallback
}

func known(family string) bool {
	return family != "" && family != "Other"
}
