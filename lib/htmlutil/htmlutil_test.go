package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "  It's Only the Himalayas ", expected: "It's Only the Himalayas"},
		{in: "Full Moon\n\t  over Noah’s Ark", expected: "Full Moon over Noah’s Ark"},
		{in: "bell\x07", expected: "bell"},
		{in: "Tab\tHere\u00a0Nbsp", expected: "Tab Here Nbsp"},
		{in: "Lonely\u2003Planet\r\nGuide", expected: "Lonely Planet Guide"},
		{in: "", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, CleanText(test.in), test.in)
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<p class="price_color">£<b>45</b>.17</p>`,
	))
	require.NoError(t, err)

	require.Equal(t, "£45.17", SelectionText(doc.Find("p.price_color")))
	require.Equal(t, "", SelectionText(doc.Find("p.missing")))
}
