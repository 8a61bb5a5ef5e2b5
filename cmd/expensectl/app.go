package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/client/authstate"
	"github.com/sebuszqo/ExpenseTracker/internal/client/backend"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

var (
	errNoTerminal = errors.New("stdin is not a terminal")
	errQuit       = errors.New("quit")
)

const helpText = `Commands:
  signup                 create an account and sign in
  login                  sign in with email and password
  google                 sign in with Google
  logout                 sign out
  whoami                 show the signed-in user
  categories             list system and own categories
  add-category           create a category
  transactions           list transactions
  add                    add a transaction
  update <id>            change amount, description or date
  delete <id>            delete a transaction
  summary [start] [end]  yearly totals, dates as YYYY-MM-DD
  breakdown              spending per category
  help                   show this help
  quit                   exit`

type app struct {
	in           *bufio.Reader
	out          io.Writer
	auth         *authstate.Controller
	api          *backend.Client
	readPassword func(prompt string) (string, error)
}

func (a *app) run(ctx context.Context) error {
	unsubscribe := a.auth.Subscribe(func(s authstate.State) {
		if s.Status == authstate.SignedIn && s.User != nil {
			fmt.Fprintf(a.out, "* signed in as %s\n", displayName(s))
		}
	})
	defer unsubscribe()

	if ok, err := a.auth.Restore(ctx); err == nil && !ok {
		fmt.Fprintln(a.out, "Not signed in. Type 'help' for commands.")
	}

	for {
		fmt.Fprint(a.out, "expense> ")
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if err := a.dispatch(ctx, fields[0], fields[1:]); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(a.out, "error: %s\n", describe(err))
		}
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		fmt.Fprintln(a.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "signup":
		return a.signUp(ctx)
	case "login":
		return a.logIn(ctx)
	case "google":
		return a.google(ctx)
	case "logout":
		if err := a.auth.LogOut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Signed out.")
		return nil
	case "whoami":
		return a.whoami()
	case "categories":
		return a.categories(ctx)
	case "add-category":
		return a.addCategory(ctx)
	case "transactions":
		return a.transactions(ctx)
	case "add":
		return a.addTransaction(ctx)
	case "update":
		if len(args) != 1 {
			return errors.New("usage: update <id>")
		}
		return a.updateTransaction(ctx, args[0])
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		if err := a.api.DeleteTransaction(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Deleted.")
		return nil
	case "summary":
		return a.summary(ctx, args)
	case "breakdown":
		return a.breakdown(ctx)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (a *app) signUp(ctx context.Context) error {
	name, err := a.prompt("Name: ")
	if err != nil {
		return err
	}
	email, err := a.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	_, err = a.auth.SignUp(ctx, email, password, name)
	return err
}

func (a *app) logIn(ctx context.Context) error {
	email, err := a.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	_, err = a.auth.LogIn(ctx, email, password)
	return err
}

func (a *app) google(ctx context.Context) error {
	result, err := a.auth.SignInWithGoogle(ctx)
	if err != nil {
		return err
	}
	if result.IsNewUser {
		fmt.Fprintln(a.out, "Welcome! Your account was created.")
	}
	return nil
}

func (a *app) whoami() error {
	s := a.auth.Current()
	if s.Status != authstate.SignedIn || s.User == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (uid %s)\n", displayName(s), s.User.Email, s.User.UID)
	return nil
}

func (a *app) categories(ctx context.Context) error {
	system, err := a.api.SystemCategories(ctx)
	if err != nil {
		return err
	}
	own, err := a.api.Categories(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tOWNER")
	for _, c := range append(system, own...) {
		owner := "you"
		if c.IsSystem {
			owner = "system"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, owner)
	}
	return tw.Flush()
}

func (a *app) addCategory(ctx context.Context) error {
	name, err := a.prompt("Name: ")
	if err != nil {
		return err
	}
	typ, err := a.prompt("Type (income/expense): ")
	if err != nil {
		return err
	}
	color, err := a.prompt("Color (optional): ")
	if err != nil {
		return err
	}

	category, err := a.api.CreateCategory(ctx, backend.NewCategory{Name: name, Type: typ, Color: optional(color)})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created category %d.\n", category.ID)
	return nil
}

func (a *app) transactions(ctx context.Context) error {
	list, err := a.api.Transactions(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No transactions yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, t := range list {
		description := ""
		if t.Description != nil {
			description = *t.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%s\n", t.ID, t.Date, t.Type, t.Amount, t.CategoryID, description)
	}
	return tw.Flush()
}

func (a *app) addTransaction(ctx context.Context) error {
	in, err := a.readNewTransaction()
	if err != nil {
		return err
	}
	created, err := a.api.CreateTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created transaction %s.\n", created.ID)
	return nil
}

func (a *app) readNewTransaction() (backend.NewTransaction, error) {
	var in backend.NewTransaction

	amount, err := a.prompt("Amount: ")
	if err != nil {
		return in, err
	}
	if in.Amount, err = parseAmount(amount); err != nil {
		return in, err
	}
	if in.Type, err = a.prompt("Type (income/expense): "); err != nil {
		return in, err
	}
	categoryID, err := a.prompt("Category ID: ")
	if err != nil {
		return in, err
	}
	if in.CategoryID, err = strconv.ParseInt(categoryID, 10, 64); err != nil {
		return in, fmt.Errorf("category ID must be a number")
	}
	date, err := a.prompt("Date (YYYY-MM-DD, empty for today): ")
	if err != nil {
		return in, err
	}
	if in.Date, err = parseDateOrToday(date, time.Now()); err != nil {
		return in, err
	}
	description, err := a.prompt("Description (optional): ")
	if err != nil {
		return in, err
	}
	in.Description = optional(description)
	payment, err := a.prompt("Payment method (empty for cash): ")
	if err != nil {
		return in, err
	}
	in.PaymentMethod = payment
	return in, nil
}

func (a *app) updateTransaction(ctx context.Context, id string) error {
	var patch domain.TransactionPatch

	amount, err := a.prompt("New amount (empty to keep): ")
	if err != nil {
		return err
	}
	if amount != "" {
		v, err := parseAmount(amount)
		if err != nil {
			return err
		}
		patch.Amount = &v
	}
	description, err := a.prompt("New description (empty to keep): ")
	if err != nil {
		return err
	}
	patch.Description = optional(description)
	date, err := a.prompt("New date (empty to keep): ")
	if err != nil {
		return err
	}
	if date != "" {
		d, err := domain.ParseDate(date)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD")
		}
		patch.Date = &d
	}

	updated, err := a.api.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated: %.2f on %s.\n", updated.Amount, updated.Date)
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	var start, end domain.Date
	var err error
	if len(args) > 0 {
		if start, err = domain.ParseDate(args[0]); err != nil {
			return fmt.Errorf("start date must be YYYY-MM-DD")
		}
	}
	if len(args) > 1 {
		if end, err = domain.ParseDate(args[1]); err != nil {
			return fmt.Errorf("end date must be YYYY-MM-DD")
		}
	}

	summary, err := a.api.Summary(ctx, start, end)
	if err != nil {
		return err
	}
	years := make([]int, 0, len(summary))
	for y := range summary {
		years = append(years, y)
	}
	sort.Ints(years)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tINCOME\tEXPENSES")
	for _, y := range years {
		s := summary[y]
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\n", y, s.IncomeTotal, s.ExpenseTotal)
		months := make([]string, 0, len(s.Months))
		for m := range s.Months {
			months = append(months, m)
		}
		sort.Slice(months, func(i, j int) bool { return monthIndex(months[i]) < monthIndex(months[j]) })
		for _, m := range months {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\n", m, s.Months[m].IncomeTotal, s.Months[m].ExpenseTotal)
		}
	}
	return tw.Flush()
}

func (a *app) breakdown(ctx context.Context) error {
	b, err := a.api.Breakdown(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Income %.2f  Expenses %.2f  Net %.2f\n", b.TotalIncome, b.TotalExpenses, b.Net)
	if b.HighestCategory != nil {
		fmt.Fprintf(a.out, "Top spending: %s (%.2f)\n", b.HighestCategory.Name, b.HighestCategory.Total)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tCOUNT\tSHARE")
	for _, c := range b.Categories {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d%%\n", c.Name, c.Total, c.Count, c.Percentage)
	}
	return tw.Flush()
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// password reads without echo on a terminal and falls back to a plain line
// when input is piped.
func (a *app) password(label string) (string, error) {
	if a.readPassword != nil {
		p, err := a.readPassword(label)
		if !errors.Is(err, errNoTerminal) {
			return p, err
		}
	}
	return a.prompt(label)
}

func displayName(s authstate.State) string {
	if s.User.DisplayName != "" {
		return s.User.DisplayName
	}
	return s.User.Email
}

func describe(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 401 {
			return apiErr.Message + " (try 'login')"
		}
		return apiErr.Message
	}
	return err.Error()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, errors.New("amount must be a positive number")
	}
	return v, nil
}

func parseDateOrToday(s string, now time.Time) (domain.Date, error) {
	if s == "" {
		return domain.NewDate(now.Year(), now.Month(), now.Day()), nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, errors.New("date must be YYYY-MM-DD")
	}
	return d, nil
}

func monthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return int(m)
		}
	}
	return 13
}
