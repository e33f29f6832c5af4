package platforms

import (
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// PublishSettings is the tagged union of per-platform publish options.
// A post carries one generic settings bag; MapSettings narrows it to the
// concrete shape the target platform's adapter understands.
type PublishSettings interface {
	SettingsPlatform() models.Platform
}

// FacebookSettings controls how a post lands on a Facebook page
type FacebookSettings struct {
	PublishAsStory bool
	LinkPreview    bool
}

func (FacebookSettings) SettingsPlatform() models.Platform { return models.PlatformFacebook }

// InstagramSettings controls Instagram-specific publish behavior
type InstagramSettings struct {
	ShareToFeed    bool
	CollaboratorID string
}

func (InstagramSettings) SettingsPlatform() models.Platform { return models.PlatformInstagram }

// LinkedInSettings controls LinkedIn-specific publish behavior
type LinkedInSettings struct {
	Visibility string // "PUBLIC" or "CONNECTIONS"
}

func (LinkedInSettings) SettingsPlatform() models.Platform { return models.PlatformLinkedIn }

// PinterestSettings controls Pinterest-specific publish behavior
type PinterestSettings struct {
	BoardID string
	Link    string
	AltText string
}

func (PinterestSettings) SettingsPlatform() models.Platform { return models.PlatformPinterest }

// YouTubeSettings controls YouTube-specific publish behavior
type YouTubeSettings struct {
	Title      string
	Visibility string // "public", "private" or "unlisted"
	CategoryID string
}

func (YouTubeSettings) SettingsPlatform() models.Platform { return models.PlatformYouTube }

// TikTokSettings controls TikTok-specific publish behavior
type TikTokSettings struct {
	PrivacyLevel    string // "PUBLIC_TO_EVERYONE", "SELF_ONLY", ...
	DisableComments bool
	DisableDuet     bool
}

func (TikTokSettings) SettingsPlatform() models.Platform { return models.PlatformTikTok }

// GoogleBusinessSettings controls Google Business profile publish behavior
type GoogleBusinessSettings struct {
	CallToAction string
	ActionURL    string
}

func (GoogleBusinessSettings) SettingsPlatform() models.Platform { return models.PlatformGoogle }

// MapSettings narrows a post's generic settings bag into the concrete
// settings type for one platform. Unknown keys are ignored; a nil or empty
// bag yields the platform's zero-value settings.
func MapSettings(platform models.Platform, bag models.JSONB) PublishSettings {
	switch platform {
	case models.PlatformFacebook:
		return FacebookSettings{
			PublishAsStory: boolSetting(bag, "publish_as_story"),
			LinkPreview:    boolSetting(bag, "link_preview"),
		}
	case models.PlatformInstagram:
		return InstagramSettings{
			ShareToFeed:    boolSetting(bag, "share_to_feed"),
			CollaboratorID: stringSetting(bag, "collaborator_id"),
		}
	case models.PlatformLinkedIn:
		return LinkedInSettings{
			Visibility: stringSettingDefault(bag, "visibility", "PUBLIC"),
		}
	case models.PlatformPinterest:
		return PinterestSettings{
			BoardID: stringSetting(bag, "board_id"),
			Link:    stringSetting(bag, "link"),
			AltText: stringSetting(bag, "alt_text"),
		}
	case models.PlatformYouTube:
		return YouTubeSettings{
			Title:      stringSetting(bag, "title"),
			Visibility: stringSettingDefault(bag, "visibility", "public"),
			CategoryID: stringSetting(bag, "category_id"),
		}
	case models.PlatformTikTok:
		return TikTokSettings{
			PrivacyLevel:    stringSettingDefault(bag, "privacy_level", "PUBLIC_TO_EVERYONE"),
			DisableComments: boolSetting(bag, "disable_comments"),
			DisableDuet:     boolSetting(bag, "disable_duet"),
		}
	case models.PlatformGoogle:
		return GoogleBusinessSettings{
			CallToAction: stringSetting(bag, "call_to_action"),
			ActionURL:    stringSetting(bag, "action_url"),
		}
	default:
		return nil
	}
}

func stringSetting(bag models.JSONB, key string) string {
	if bag == nil {
		return ""
	}
	if v, ok := bag[key].(string); ok {
		return v
	}
	return ""
}

func stringSettingDefault(bag models.JSONB, key, def string) string {
	if v := stringSetting(bag, key); v != "" {
		return v
	}
	return def
}

func boolSetting(bag models.JSONB, key string) bool {
	if bag == nil {
		return false
	}
	if v, ok := bag[key].(bool); ok {
		return v
	}
	return false
}
