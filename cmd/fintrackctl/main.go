package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/api"
	"fintrack/internal/apiclient"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

const usage = `fintrackctl - personal finance tracker client

Usage:
  fintrackctl signup   -name NAME -email EMAIL -password PASS
  fintrackctl login    -email EMAIL -password PASS
  fintrackctl logout
  fintrackctl whoami
  fintrackctl add      -amount 12.50 -type expense -category Food [-desc TEXT] [-date 2026-08-28]
  fintrackctl list     [-page 1] [-filter all|income|expense]
  fintrackctl update   -id ID [-amount N] [-type T] [-category C] [-desc TEXT]
  fintrackctl delete   -id ID
  fintrackctl recent   [-limit 10]
  fintrackctl summary
  fintrackctl stats    [-window week|month|year|all]
  fintrackctl dashboard
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := applog.New(applog.Config{
		Level:     slog.LevelWarn,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})

	cfg := config.Load()
	client, err := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	if err != nil {
		fatal("invalid API base URL: %v", err)
	}

	notifier := &terminalNotifier{}
	creds := session.NewFileCredentialStore(cfg.CredentialFile)
	provider := session.NewProvider(client, creds, notifier, logger)
	txStore := store.New(client, provider, notifier, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app := &app{
		client:   client,
		provider: provider,
		store:    txStore,
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := app.run(ctx, cmd, args); err != nil {
		fatal("%v", err)
	}
}

type app struct {
	client   *apiclient.Client
	provider *session.Provider
	store    *store.Store
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup", "login":
		return a.runAuth(ctx, session.Mode(cmd), args)
	case "logout":
		a.restore(ctx)
		a.provider.Logout()
		return nil
	case "whoami":
		return a.runWhoami(ctx)
	case "add":
		return a.runAdd(ctx, args)
	case "list":
		return a.runList(ctx, args)
	case "update":
		return a.runUpdate(ctx, args)
	case "delete":
		return a.runDelete(ctx, args)
	case "recent":
		return a.runRecent(ctx, args)
	case "summary":
		return a.runSummary(ctx)
	case "stats":
		return a.runStats(ctx, args)
	case "dashboard":
		return a.runDashboard(ctx)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// restore brings a persisted session back before an authenticated command.
func (a *app) restore(ctx context.Context) {
	_ = a.provider.CheckSession(ctx)
}

func (a *app) requireSession(ctx context.Context) (core.User, error) {
	a.restore(ctx)
	user, ok := a.provider.User()
	if !ok {
		return core.User{}, fmt.Errorf("not logged in: run 'fintrackctl login' first")
	}
	return user, nil
}

func (a *app) runAuth(ctx context.Context, mode session.Mode, args []string) error {
	fs := flag.NewFlagSet(string(mode), flag.ExitOnError)
	name := fs.String("name", "", "full name (signup only)")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	return a.provider.Login(ctx, mode, session.Credentials{
		FullName: *name,
		Email:    *email,
		Password: *password,
	})
}

func (a *app) runWhoami(ctx context.Context) error {
	user, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\nbalance: %s\n", user.FullName, user.Email, core.FormatUSD(user.BalanceCents))
	return nil
}

func (a *app) runAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	txType := fs.String("type", "expense", "income or expense")
	category := fs.String("category", "", "category name")
	desc := fs.String("desc", "", "description")
	date := fs.String("date", "", "date (YYYY-MM-DD), defaults to today")
	fs.Parse(args)

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", *amount)
	}
	when := time.Now()
	if *date != "" {
		when, err = time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", *date)
		}
	}

	_, err = a.store.Add(ctx, core.Transaction{
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(*txType),
		Category:    *category,
		Description: *desc,
		Date:        when,
	})
	return err
}

func (a *app) runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	filter := fs.String("filter", "all", "all, income or expense")
	fs.Parse(args)

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	if err := a.store.Load(ctx, *page, store.Filter(*filter)); err != nil {
		return err
	}

	printTransactions(a.store.Transactions())
	current, total := a.store.Page()
	fmt.Printf("page %d of %d\n", current, total)
	return nil
}

func (a *app) runUpdate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	amount := fs.String("amount", "", "new amount")
	txType := fs.String("type", "", "new type")
	category := fs.String("category", "", "new category")
	desc := fs.String("desc", "", "new description")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("missing -id")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	var patch api.UpdateTransactionRequest
	if *amount != "" {
		cents, err := core.ParseDecimalToCents(*amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q", *amount)
		}
		dollars := core.Money{Cents: cents}.Dollars()
		patch.Amount = &dollars
	}
	if *txType != "" {
		patch.Type = txType
	}
	if *category != "" {
		patch.Category = category
	}
	if *desc != "" {
		patch.Description = desc
	}

	_, err := a.store.Update(ctx, *id, patch)
	return err
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("missing -id")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	return a.store.Delete(ctx, *id)
}

func (a *app) runRecent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of transactions")
	fs.Parse(args)

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	transactions, err := a.store.LoadRecent(ctx, *limit)
	if err != nil {
		return err
	}
	printTransactions(transactions)
	return nil
}

func (a *app) runSummary(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	summary, err := a.client.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("income:   %s\nexpenses: %s\nnet:      %s\n",
		core.FormatUSD(summary.TotalIncomeCents),
		core.FormatUSD(summary.TotalExpensesCents),
		core.FormatUSD(summary.NetBalanceCents))
	return nil
}

func (a *app) runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	window := fs.String("window", "month", "week, month, year or all")
	fs.Parse(args)

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	transactions, err := a.fetchAll(ctx)
	if err != nil {
		return err
	}

	s := stats.Compute(transactions, stats.TimeWindow(*window), time.Now())
	printStatistics(s)
	for _, insight := range stats.Insights(s) {
		fmt.Printf("[%s] %s\n", insight.Severity, insight.Message)
	}
	return nil
}

// runDashboard fetches the summary, the recent list and the full history
// concurrently, then renders period statistics, the spending trend and
// insights in one shot.
func (a *app) runDashboard(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	var (
		summary apiclient.Summary
		recent  []core.Transaction
		all     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.client.Summary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = a.client.RecentTransactions(gctx, 5)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = a.fetchAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("== totals ==\nincome:   %s\nexpenses: %s\nnet:      %s\n\n",
		core.FormatUSD(summary.TotalIncomeCents),
		core.FormatUSD(summary.TotalExpensesCents),
		core.FormatUSD(summary.NetBalanceCents))

	s := stats.Compute(all, stats.WindowMonth, time.Now())
	fmt.Println("== this month ==")
	printStatistics(s)

	if points := stats.Trend(all, stats.PeriodMonth); len(points) > 0 {
		fmt.Println("\n== spending trend ==")
		for _, p := range points {
			fmt.Printf("%-4s %s\n", p.Label, core.FormatUSD(p.Amount.Cents))
		}
	}

	for _, insight := range stats.Insights(s) {
		fmt.Printf("\n[%s] %s\n", insight.Severity, insight.Message)
	}

	if len(recent) > 0 {
		fmt.Println("\n== recent ==")
		printTransactions(recent)
	}
	return nil
}

// fetchAll pages through the user's entire history.
func (a *app) fetchAll(ctx context.Context) ([]core.Transaction, error) {
	var all []core.Transaction
	for page := 1; ; page++ {
		transactions, totalPages, err := a.client.ListTransactions(ctx, page, string(store.FilterAll))
		if err != nil {
			return nil, err
		}
		all = append(all, transactions...)
		if page >= totalPages || len(transactions) == 0 {
			return all, nil
		}
	}
}

func printTransactions(transactions []core.Transaction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, t := range transactions {
		amount := core.FormatUSD(t.Amount.Cents)
		if t.Type == core.Expense {
			amount = "-" + amount
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date.Format("2006-01-02"), amount, t.Type, t.Category, t.Description, t.ID)
	}
	w.Flush()
}

func printStatistics(s stats.Statistics) {
	fmt.Printf("income:   %s\nexpenses: %s\nnet:      %s\ncount:    %d\naverage:  %s\n",
		core.FormatUSD(s.TotalIncome.Cents),
		core.FormatUSD(s.TotalExpenses.Cents),
		core.FormatUSD(s.NetBalance.Cents),
		s.TransactionCount,
		core.FormatUSD(s.AverageTransaction.Cents))
	for _, c := range s.TopCategories {
		fmt.Printf("  %-12s %s (%.1f%%)\n", c.Category, core.FormatUSD(c.Amount.Cents), c.Percentage)
	}
}

// terminalNotifier renders store/session notifications for the terminal.
type terminalNotifier struct{}

func (terminalNotifier) Success(msg string) { fmt.Fprintln(os.Stderr, "✓ "+msg) }
func (terminalNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, "✗ "+msg) }
func (terminalNotifier) Info(msg string)    { fmt.Fprintln(os.Stderr, "· "+msg) }

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fintrackctl: "+format+"\n", args...)
	os.Exit(1)
}
