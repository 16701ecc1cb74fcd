package content

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"drive-autoposter/internal/model"
)

var DefaultTitles = []string{
	"Never Give Up! 💪 #Motivation",
	"Success Mindset 🧠 #Shorts",
	"Hustle Hard 🔥 #Grind",
	"Believe in Yourself ✨ #Inspiration",
	"Focus on Goals 🎯 #Success",
	"Daily Motivation for You 🚀",
	"Winners Never Quit 🏆",
}

const DefaultHashtags = `
#motivation #success #hustle #inspiration #mindset #entrepreneur
#goals #business #wealth #fitness #believe #motivationalquotes
#successquotes #life #quotes #loveyourself #happy #inspirationalquotes
`

const defaultCaptionBody = `
Type 'YES' if you agree! 🔥
.
Follow for daily motivation! 🚀
.
.
`

const defaultDescriptionLead = "Best Motivational Video \n\n"

// Catalog is the fixed content every run draws from.
type Catalog struct {
	Titles          []string `yaml:"titles"`
	Hashtags        string   `yaml:"hashtags"`
	CaptionBody     string   `yaml:"caption_body"`
	DescriptionLead string   `yaml:"description_lead"`
	Tags            []string `yaml:"tags"`
	CategoryID      string   `yaml:"category_id"` // 27 = Education
	Privacy         string   `yaml:"privacy"`
}

func Default() Catalog {
	return Catalog{
		Titles:          append([]string(nil), DefaultTitles...),
		Hashtags:        DefaultHashtags,
		CaptionBody:     defaultCaptionBody,
		DescriptionLead: defaultDescriptionLead,
		Tags:            []string{"motivation", "success", "shorts", "hustle", "inspiration"},
		CategoryID:      "27",
		Privacy:         "public",
	}
}

// LoadCatalog returns the default catalog, overlaid with the YAML file at
// path when path is non-empty. Fields absent from the file keep defaults.
func LoadCatalog(path string) (Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read content file: %w", err)
	}
	var override Catalog
	if err := yaml.Unmarshal(b, &override); err != nil {
		return c, fmt.Errorf("parse content file %s: %w", path, err)
	}

	titles := lo.Compact(lo.Map(override.Titles, func(s string, _ int) string { return strings.TrimSpace(s) }))
	if len(titles) > 0 {
		c.Titles = lo.Uniq(titles)
	}
	if override.Hashtags != "" {
		c.Hashtags = override.Hashtags
	}
	if override.CaptionBody != "" {
		c.CaptionBody = override.CaptionBody
	}
	if override.DescriptionLead != "" {
		c.DescriptionLead = override.DescriptionLead
	}
	if len(override.Tags) > 0 {
		c.Tags = lo.Uniq(override.Tags)
	}
	c.CategoryID, _ = lo.Coalesce(override.CategoryID, c.CategoryID)
	c.Privacy, _ = lo.Coalesce(override.Privacy, c.Privacy)
	return c, c.Validate()
}

func (c Catalog) Validate() error {
	if len(c.Titles) == 0 {
		return errors.New("content: title list is empty")
	}
	switch c.Privacy {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("content: invalid privacy %q", c.Privacy)
	}
	return nil
}

// InstaCaption is the fixed caption template followed by the hashtag block.
func (c Catalog) InstaCaption() string {
	return c.CaptionBody + c.Hashtags
}

// Picker draws titles uniformly at random. It keeps no history: the same
// title can come up on consecutive runs.
type Picker struct {
	catalog Catalog
	rnd     *rand.Rand
}

// NewPicker uses rnd when non-nil, otherwise a randomly seeded source.
func NewPicker(c Catalog, rnd *rand.Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Picker{catalog: c, rnd: rnd}
}

func (p *Picker) Title() string {
	return p.catalog.Titles[p.rnd.IntN(len(p.catalog.Titles))]
}

// Metadata picks a title and builds the per-platform texts around it.
func (p *Picker) Metadata() model.PublishMetadata {
	return p.catalog.Metadata(p.Title())
}

func (c Catalog) Metadata(title string) model.PublishMetadata {
	return model.PublishMetadata{
		Title:       title,
		Description: c.DescriptionLead + c.Hashtags,
		Caption:     title + "\n\n" + c.InstaCaption(),
		Tags:        append([]string(nil), c.Tags...),
		CategoryID:  c.CategoryID,
		Privacy:     c.Privacy,
		MadeForKids: false,
	}
}
