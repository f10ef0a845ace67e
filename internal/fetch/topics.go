package fetch

import (
	"sort"
	"strings"
)

// DefaultChannels is used for topics with no entry in Topics.
var DefaultChannels = []string{"r/Entrepreneur", "r/SaaS", "r/smallbusiness", "r/startups"}

// Topics maps a topic to the channels worth scanning for it.
var Topics = map[string][]string{
	"saas":         {"r/SaaS", "r/microsaas", "r/indiehackers", "r/startups"},
	"startups":     {"r/startups", "r/Entrepreneur", "r/SideProject", "feed:https://hnrss.org/ask"},
	"smallbiz":     {"r/smallbusiness", "r/Entrepreneur", "r/sweatystartup"},
	"freelance":    {"r/freelance", "r/Upwork", "r/digitalnomad"},
	"ecommerce":    {"r/ecommerce", "r/shopify", "r/FulfillmentByAmazon"},
	"developers":   {"r/webdev", "r/programming", "r/devops", "feed:https://hnrss.org/ask"},
	"productivity": {"r/productivity", "r/Notion", "r/ObsidianMD"},
	"finance":      {"r/personalfinance", "r/Accounting", "r/tax"},
	"realestate":   {"r/realestateinvesting", "r/Landlord", "r/RealEstate"},
	"health":       {"r/fitness", "r/nutrition", "r/HealthIT"},
	"education":    {"r/Teachers", "r/edtech", "r/GetStudying"},
	"marketing":    {"r/marketing", "r/SEO", "r/PPC", "r/socialmedia"},
}

// NormalizeTopic lowercases and trims a topic for lookup and cache keys.
func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}

// ChannelsForTopic returns a copy of the channel list for topic.
func ChannelsForTopic(topic string) []string {
	chans, ok := Topics[NormalizeTopic(topic)]
	if !ok {
		chans = DefaultChannels
	}
	return append([]string(nil), chans...)
}

// TopicNames returns the known topics, sorted.
func TopicNames() []string {
	names := make([]string, 0, len(Topics))
	for k := range Topics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
