package crawler

import (
	"fmt"
	"slices"
)

// Platform identifies a content source supported by the backend crawler.
type Platform string

// The fixed set of platforms.
const (
	Xiaohongshu Platform = "xiaohongshu"
	Douyin      Platform = "douyin"
	Kuaishou    Platform = "kuaishou"
	Bilibili    Platform = "bilibili"
	Weibo       Platform = "weibo"
	Tieba       Platform = "tieba"
	Zhihu       Platform = "zhihu"
)

// PlatformInfo is the static catalog entry of a Platform.
type PlatformInfo struct {
	ID             Platform      `json:"id"`
	Name           string        `json:"name"`
	DisplayName    string        `json:"displayName"`
	Description    string        `json:"description"`
	Icon           string        `json:"icon"`
	Color          string        `json:"color"`
	SupportedTypes []CrawlerType `json:"supportedTypes"`
}

// Supports reports whether the platform can run crawl type t.
func (p PlatformInfo) Supports(t CrawlerType) bool {
	return slices.Contains(p.SupportedTypes, t)
}

var platformOrder = []Platform{Xiaohongshu, Douyin, Kuaishou, Bilibili, Weibo, Tieba, Zhihu}

var catalog = map[Platform]PlatformInfo{
	Xiaohongshu: {
		ID:             Xiaohongshu,
		Name:           "xhs",
		DisplayName:    "小红书",
		Description:    "小红书平台内容爬取",
		Icon:           "📕",
		Color:          "#ff2442",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeNote, TypeComment},
	},
	Douyin: {
		ID:             Douyin,
		Name:           "dy",
		DisplayName:    "抖音",
		Description:    "抖音短视频平台爬取",
		Icon:           "🎵",
		Color:          "#000000",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeVideo, TypeComment},
	},
	Kuaishou: {
		ID:             Kuaishou,
		Name:           "ks",
		DisplayName:    "快手",
		Description:    "快手短视频平台爬取",
		Icon:           "⚡",
		Color:          "#ff6600",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeVideo, TypeComment},
	},
	Bilibili: {
		ID:             Bilibili,
		Name:           "bili",
		DisplayName:    "B站",
		Description:    "B站视频平台爬取",
		Icon:           "📺",
		Color:          "#00a1d6",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeVideo, TypeComment},
	},
	Weibo: {
		ID:             Weibo,
		Name:           "wb",
		DisplayName:    "微博",
		Description:    "微博社交平台爬取",
		Icon:           "🔥",
		Color:          "#e6162d",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeComment},
	},
	Tieba: {
		ID:             Tieba,
		Name:           "tieba",
		DisplayName:    "百度贴吧",
		Description:    "百度贴吧内容爬取",
		Icon:           "💬",
		Color:          "#2468f2",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeComment},
	},
	Zhihu: {
		ID:             Zhihu,
		Name:           "zhihu",
		DisplayName:    "知乎",
		Description:    "知乎问答平台爬取",
		Icon:           "🎓",
		Color:          "#0084ff",
		SupportedTypes: []CrawlerType{TypeSearch, TypeDetail, TypeCreator, TypeComment},
	},
}

// AllPlatforms returns every platform in catalog order.
func AllPlatforms() []Platform {
	return append([]Platform(nil), platformOrder...)
}

// Lookup returns the catalog entry for p.
func Lookup(p Platform) (PlatformInfo, bool) {
	info, ok := catalog[p]
	if !ok {
		return PlatformInfo{}, false
	}
	info.SupportedTypes = append([]CrawlerType(nil), info.SupportedTypes...)
	return info, true
}

// Valid reports whether p is in the catalog.
func (p Platform) Valid() bool {
	_, ok := catalog[p]
	return ok
}

// APIName returns the short name the backend uses for p, or p itself when
// unknown.
func (p Platform) APIName() string {
	if info, ok := catalog[p]; ok {
		return info.Name
	}
	return string(p)
}

// DisplayName returns the human label for p, or p itself when unknown.
func (p Platform) DisplayName() string {
	if info, ok := catalog[p]; ok {
		return info.DisplayName
	}
	return string(p)
}

// PlatformFromAPIName resolves a backend short name back to a Platform.
func PlatformFromAPIName(name string) (Platform, bool) {
	for _, p := range platformOrder {
		if catalog[p].Name == name {
			return p, true
		}
	}
	return "", false
}

// ParsePlatform accepts either the canonical id or the backend short name.
func ParsePlatform(s string) (Platform, error) {
	if p := Platform(s); p.Valid() {
		return p, nil
	}
	if p, ok := PlatformFromAPIName(s); ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}
