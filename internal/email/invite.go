package email

import (
	"bytes"
	"fmt"

	cmp "maragu.dev/gomponents"
	g "maragu.dev/gomponents/html"
)

// Invite renders the email sent when a contact request targets an address
// with no account yet.
func Invite(inviterName, message, signupURL string) (subject, html string, err error) {
	subject = fmt.Sprintf("%s vous invite sur Pliiiz", inviterName)

	body := g.HTML(
		g.Body(
			g.H1(cmp.Textf("%s aimerait partager ses idées cadeaux avec vous", inviterName)),
			cmp.If(message != "", g.P(g.Style("font-style: italic"), cmp.Text(message))),
			g.P(cmp.Text("Pliiiz permet de partager ses envies, ses tailles et ses goûts avec ses proches.")),
			g.P(g.A(g.Href(signupURL), cmp.Text("Créer mon compte"))),
		),
	)

	var buf bytes.Buffer
	if err := body.Render(&buf); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
