package generation

// Voice is a selectable narrator voice.
type Voice struct {
	Name        string
	DisplayName string
	Description string
}

var voiceCatalogue = []Voice{
	{Name: "alloy", DisplayName: "Alloy (Female)", Description: "A versatile female voice with a natural, balanced tone"},
	{Name: "echo", DisplayName: "Echo (Male)", Description: "A deep, resonant male voice with a warm quality"},
	{Name: "fable", DisplayName: "Fable (Male)", Description: "A male voice with a storytelling quality and gentle pace"},
	{Name: "onyx", DisplayName: "Onyx (Male)", Description: "A powerful, authoritative male voice with clear articulation"},
	{Name: "nova", DisplayName: "Nova (Female)", Description: "A bright, energetic female voice with a youthful quality"},
	{Name: "shimmer", DisplayName: "Shimmer (Female)", Description: "A soft, melodic female voice with a soothing presence"},
}

// AvailableDurations lists the offered episode lengths in minutes.
var AvailableDurations = []int{5, 10, 15, 30, 45, 60}

// SuggestedTopics seeds topic pickers.
var SuggestedTopics = []string{
	"Faith and Spirituality",
	"Christian Living",
	"Prayer and Meditation",
	"Bible Study",
	"Worship and Praise",
	"Family and Relationships",
	"Personal Growth",
	"Church and Community",
	"Missions and Outreach",
	"Christian History",
	"Theology and Doctrine",
	"Apologetics",
	"Discipleship",
	"Leadership",
	"Evangelism",
}

// Voices returns the supported voice catalogue.
func Voices() []Voice {
	return append([]Voice(nil), voiceCatalogue...)
}

// MinVoices is the fewest distinct voices a podcast may use.
const MinVoices = 2
