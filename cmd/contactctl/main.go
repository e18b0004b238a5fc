// Command contactctl submits the contact form from a terminal.
//
//	contactctl -endpoint http://localhost:3000/contact -first Jane -last Doe \
//	    -email jane@example.com -inquiry film-project -subject Hi -message "Hello" -privacy
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nazarhussain/portfolio-contact/client"
	"github.com/nazarhussain/portfolio-contact/env"
)

type stderrIndicator struct{}

func (stderrIndicator) Busy() { fmt.Fprint(os.Stderr, "sending... ") }
func (stderrIndicator) Idle() { fmt.Fprintln(os.Stderr, "done") }

func main() {
	env.Load()

	var (
		f       client.Form
		timeout time.Duration
		asJSON  bool
	)
	endpoint := flag.String("endpoint", env.Env("CONTACT_ENDPOINT", "http://localhost:3000/contact"), "contact endpoint URL")
	flag.StringVar(&f.FirstName, "first", "", "first name")
	flag.StringVar(&f.LastName, "last", "", "last name")
	flag.StringVar(&f.Email, "email", "", "email address")
	flag.StringVar(&f.Phone, "phone", "", "phone number")
	flag.StringVar(&f.Company, "company", "", "company")
	flag.StringVar(&f.InquiryType, "inquiry", "", "inquiry type key, e.g. film-project")
	flag.StringVar(&f.Subject, "subject", "", "subject")
	flag.StringVar(&f.Message, "message", "", "message body")
	flag.BoolVar(&f.Privacy, "privacy", false, "agree to the privacy policy")
	flag.BoolVar(&f.Newsletter, "newsletter", false, "subscribe to the newsletter")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	flag.BoolVar(&asJSON, "json", false, "print the raw response envelope")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*endpoint)
	c.HTTPClient.Timeout = timeout
	c.Indicator = stderrIndicator{}

	res, err := c.Submit(ctx, f)
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
	} else {
		fmt.Println(res.Message)
	}
	if err != nil && !client.IsValidation(err) {
		slog.Error("submit failed", "err", err)
	}
	if !res.Success {
		os.Exit(1)
	}
}
