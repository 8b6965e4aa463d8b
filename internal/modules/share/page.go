package share

import (
	"net/url"

	"github.com/pliiiz/pliiiz/internal/modules/profile"
	g "maragu.dev/gomponents"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

const maxGifts = 6

func meta(property, content string) g.Node {
	return h.Meta(g.Attr("property", property), h.Content(content))
}

// ProfilePage is the OpenGraph page for a public profile.
func ProfilePage(baseURL string, view *profile.PublicProfile) g.Node {
	card := view.Profile
	title := card.DisplayName + " sur Pliiiz"
	description := card.Bio
	if description == "" {
		description = "Découvrez les envies et idées cadeaux de " + card.DisplayName + "."
	}
	pageURL := baseURL + "/u/" + url.PathEscape(card.Slug)
	appURL := baseURL + "/app/u/" + url.PathEscape(card.Slug)
	image := card.AvatarURL
	if image != "" && image[0] == '/' {
		image = baseURL + image
	}

	gifts := view.Gifts
	if len(gifts) > maxGifts {
		gifts = gifts[:maxGifts]
	}

	return c.HTML5(c.HTML5Props{
		Title:       title,
		Description: description,
		Language:    "fr",
		Head: []g.Node{
			meta("og:type", "profile"),
			meta("og:title", title),
			meta("og:description", description),
			meta("og:url", pageURL),
			g.If(image != "", meta("og:image", image)),
			h.Meta(h.Name("twitter:card"), h.Content("summary")),
			h.Link(h.Rel("canonical"), h.Href(pageURL)),
		},
		Body: []g.Node{
			h.Main(h.Class("share"),
				g.If(card.AvatarURL != "", h.Img(h.Src(card.AvatarURL), h.Alt(card.DisplayName), h.Class("avatar"))),
				h.H1(g.Text(card.DisplayName)),
				g.If(card.Bio != "", h.P(h.Class("bio"), g.Text(card.Bio))),
				g.If(len(gifts) > 0, h.Ul(h.Class("gifts"),
					g.Map(gifts, func(gift profile.PublicGift) g.Node {
						return h.Li(g.Text(gift.Label))
					}),
				)),
				h.A(h.Href(appURL), h.Class("open-app"), g.Text("Ouvrir dans Pliiiz")),
			),
		},
	})
}

// NotFoundPage is shown for unknown and non-public profiles.
func NotFoundPage(baseURL string) g.Node {
	return c.HTML5(c.HTML5Props{
		Title:    "Profil introuvable · Pliiiz",
		Language: "fr",
		Head:     []g.Node{h.Meta(h.Name("robots"), h.Content("noindex"))},
		Body: []g.Node{
			h.Main(h.Class("share"),
				h.H1(g.Text("Profil introuvable")),
				h.P(g.Text("Ce profil n'existe pas ou n'est pas public.")),
				h.A(h.Href(baseURL+"/"), g.Text("Découvrir Pliiiz")),
			),
		},
	})
}
