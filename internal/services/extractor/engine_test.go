package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/models"
)

func TestEngine_StructuredWinsOverLowerStrategies(t *testing.T) {
	// All three strategies can produce a name; only the JSON-LD one
	// must survive.
	html := `<html><head>
	<script type="application/ld+json">{"@type": "Restaurant", "name": "Structured Name"}</script>
	</head><body>
	<div itemscope itemtype="https://schema.org/Restaurant"><span itemprop="name">Semantic Name</span></div>
	<h1>Heuristic Name</h1>
	</body></html>`

	engine := NewEngine(arbor.NewLogger())
	fields, err := engine.Extract([]byte(html), models.DefaultRestaurantSchema())
	require.NoError(t, err)

	require.Len(t, fields["name"], 1)
	assert.Equal(t, "Structured Name", fields["name"][0].Value)
	assert.Equal(t, models.StrategyStructured, fields["name"][0].Strategy)
}

func TestEngine_LowerStrategiesFillGaps(t *testing.T) {
	// JSON-LD has the name but not the phone; microdata has the phone;
	// the heuristic pass has the email.
	html := `<html><head>
	<script type="application/ld+json">{"@type": "Restaurant", "name": "Gap Fill Diner"}</script>
	</head><body>
	<div itemscope itemtype="https://schema.org/Restaurant"><span itemprop="telephone">555-111-2222</span></div>
	<a href="mailto:gaps@example.com">Email</a>
	</body></html>`

	engine := NewEngine(arbor.NewLogger())
	fields, err := engine.Extract([]byte(html), models.DefaultRestaurantSchema())
	require.NoError(t, err)

	require.NotEmpty(t, fields["name"])
	assert.Equal(t, models.StrategyStructured, fields["name"][0].Strategy)

	require.NotEmpty(t, fields["phone"])
	assert.Equal(t, models.StrategySemantic, fields["phone"][0].Strategy)
	assert.Equal(t, "(555) 111-2222", fields["phone"][0].Value)

	require.NotEmpty(t, fields["email"])
	assert.Equal(t, models.StrategyHeuristic, fields["email"][0].Strategy)
	assert.Equal(t, "gaps@example.com", fields["email"][0].Value)
}

func TestEngine_ConfidenceReflectsStrategy(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type": "Restaurant", "name": "Confidence Cafe"}</script>
	</head><body><a href="mailto:c@example.com">mail</a></body></html>`

	engine := NewEngine(arbor.NewLogger())
	fields, err := engine.Extract([]byte(html), models.DefaultRestaurantSchema())
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceStructured, fields["name"][0].Confidence)
	assert.InDelta(t, models.ConfidenceHeuristic+0.1, fields["email"][0].Confidence, 0.001)
}

func TestEngine_MalformedContentDegradesToEmpty(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())

	// Not HTML at all: the parser still produces a document, the
	// strategies simply find nothing.
	fields, err := engine.Extract([]byte("%PDF-1.4 binary garbage \x00\x01"), models.DefaultRestaurantSchema())
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestEngine_EmptyBody(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())
	fields, err := engine.Extract(nil, models.DefaultRestaurantSchema())
	require.NoError(t, err)
	assert.Empty(t, fields)
}
