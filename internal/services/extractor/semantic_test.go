package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/models"
)

func TestSemantic_RestaurantMicrodata(t *testing.T) {
	html := `<html><body>
	<div itemscope itemtype="https://schema.org/Restaurant">
		<h1 itemprop="name">Maple &amp; Oak</h1>
		<span itemprop="telephone">555-987-6543</span>
		<a itemprop="email" href="mailto:hello@mapleoak.example.com">Email us</a>
		<div itemprop="address" itemscope itemtype="https://schema.org/PostalAddress">
			<span itemprop="streetAddress">45 Oak Ave</span>
			<span itemprop="addressLocality">Portland</span>
			<span itemprop="addressRegion">OR</span>
		</div>
		<meta itemprop="priceRange" content="$$$">
	</div>
	</body></html>`

	strategy := NewSemanticStrategy(arbor.NewLogger())
	fields := strategy.Extract(parseDoc(t, html), models.DefaultRestaurantSchema())

	require.NotEmpty(t, fields["name"])
	assert.Equal(t, "Maple & Oak", fields["name"][0].Value)
	assert.Equal(t, models.StrategySemantic, fields["name"][0].Strategy)

	require.NotEmpty(t, fields["phone"])
	assert.Equal(t, "(555) 987-6543", fields["phone"][0].Value)

	require.NotEmpty(t, fields["email"])
	assert.Equal(t, "hello@mapleoak.example.com", fields["email"][0].Value)

	require.NotEmpty(t, fields["address"])
	assert.Equal(t, "45 Oak Ave, Portland, OR", fields["address"][0].Value)

	require.NotEmpty(t, fields["price_range"])
	assert.Equal(t, "$$$", fields["price_range"][0].Value)
}

func TestSemantic_ScopesToEntityItemscope(t *testing.T) {
	// The name outside the Restaurant scope must not win.
	html := `<html><body>
	<div itemscope itemtype="https://schema.org/WebSite">
		<span itemprop="name">Some Website</span>
	</div>
	<div itemscope itemtype="https://schema.org/LocalBusiness">
		<span itemprop="name">Harbor Grill</span>
	</div>
	</body></html>`

	strategy := NewSemanticStrategy(arbor.NewLogger())
	fields := strategy.Extract(parseDoc(t, html), models.DefaultRestaurantSchema())

	require.NotEmpty(t, fields["name"])
	assert.Equal(t, "Harbor Grill", fields["name"][0].Value)
}

func TestSemantic_MenuItems(t *testing.T) {
	html := `<html><body>
	<div itemscope itemtype="https://schema.org/Restaurant">
		<div itemscope itemtype="https://schema.org/MenuItem"><span itemprop="name">Fish Tacos</span></div>
		<div itemscope itemtype="https://schema.org/MenuItem"><span itemprop="name">Clam Chowder</span></div>
	</div>
	</body></html>`

	strategy := NewSemanticStrategy(arbor.NewLogger())
	fields := strategy.Extract(parseDoc(t, html), models.DefaultRestaurantSchema())

	require.NotEmpty(t, fields["menu_items"])
	assert.Equal(t, []string{"Fish Tacos", "Clam Chowder"}, fields["menu_items"][0].Values)
	assert.Equal(t, models.ConfidenceSemantic, fields["menu_items"][0].Confidence)
}

func TestSemantic_NoMarkupYieldsNothing(t *testing.T) {
	html := `<html><body><h1>Plain page</h1><p>No microdata here.</p></body></html>`

	strategy := NewSemanticStrategy(arbor.NewLogger())
	fields := strategy.Extract(parseDoc(t, html), models.DefaultRestaurantSchema())
	assert.Empty(t, fields)
}
