// Command pharmctl is a terminal client for the pharmacy ordering backend:
// login, catalog browsing, cart submission, and delivery tracking.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/angelmondragon/pharmalink-go/internal/auth"
	"github.com/angelmondragon/pharmalink-go/internal/cart"
	"github.com/angelmondragon/pharmalink-go/internal/gateway"
	"github.com/angelmondragon/pharmalink-go/internal/medications"
	"github.com/angelmondragon/pharmalink-go/internal/orders"
	"github.com/angelmondragon/pharmalink-go/internal/realtime"
	"github.com/angelmondragon/pharmalink-go/internal/session"
	"github.com/angelmondragon/pharmalink-go/internal/vendors"
	"github.com/angelmondragon/pharmalink-go/pkg/config"
	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/pagination"
	redisclient "github.com/angelmondragon/pharmalink-go/pkg/redis"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
	"github.com/joho/godotenv"
)

const usage = `usage: pharmctl <command> [flags]

commands:
  login        authenticate and persist the session
  register     create a pharmacy account
  logout       clear the stored session
  whoami       show the logged-in user
  vendors      list vendors, or show one with -id
  meds         list medications, filtered with -vendor, or show one with -id
  submit       build a cart from -item flags and place an order
  orders       list order history, or show one with -id
  track        show delivery tracking for an order, -follow for live events
  analytics    show the pharmacy's order report
  top-selling  show a vendor's best sellers
`

type app struct {
	cfg      *config.Config
	log      *logger.Logger
	sess     *session.Manager
	gw       *gateway.Client
	auth     *auth.Service
	vendors  *vendors.Service
	meds     *medications.Service
	orders   *orders.Service
	realtime *realtime.Channel
	close    func()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "pharmctl"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pharmctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	a, err := bootstrap(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap client", err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		logg.Error(context.Background(), os.Args[1]+" failed", err)
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sess, err := session.NewManager(ctx, store, logg)
	if err != nil {
		closeStore()
		return nil, err
	}

	gw, err := gateway.New(cfg.API, sess, logg)
	if err != nil {
		closeStore()
		return nil, err
	}

	authService, err := auth.NewService(gw, sess, logg)
	if err != nil {
		closeStore()
		return nil, err
	}
	vendorService, err := vendors.NewService(gw, logg)
	if err != nil {
		closeStore()
		return nil, err
	}
	medicationService, err := medications.NewService(gw, logg)
	if err != nil {
		closeStore()
		return nil, err
	}
	orderService, err := orders.NewService(gw, logg)
	if err != nil {
		closeStore()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     logg,
		sess:    sess,
		gw:      gw,
		auth:    authService,
		vendors: vendorService,
		meds:    medicationService,
		orders:  orderService,
		close:   closeStore,
	}

	if cfg.Realtime.Enabled {
		channel, err := realtime.New(cfg.Realtime, cfg.API.Origin(), sess, logg)
		if err != nil {
			closeStore()
			return nil, err
		}
		a.realtime = channel
	}
	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), func() {}, nil
	case config.SessionBackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewRedisStore(client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	default:
		store, err := session.NewFileStore(cfg.Session.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		return a.auth.Logout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "vendors":
		return a.cmdVendors(ctx, args)
	case "meds":
		return a.cmdMedications(ctx, args)
	case "submit":
		return a.cmdSubmit(ctx, args)
	case "orders":
		return a.cmdOrders(ctx, args)
	case "track":
		return a.cmdTrack(ctx, args)
	case "analytics":
		return a.cmdAnalytics(ctx)
	case "top-selling":
		return a.cmdTopSelling(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.auth.Login(ctx, auth.LoginInput{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("logged in")
		return nil
	}
	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	input := auth.RegisterPharmacyInput{}
	fs.StringVar(&input.Email, "email", "", "account email")
	fs.StringVar(&input.Password, "password", "", "account password")
	fs.StringVar(&input.ConfirmPassword, "confirm-password", "", "password confirmation")
	fs.StringVar(&input.Name, "name", "", "contact name")
	fs.StringVar(&input.Phone, "phone", "", "contact phone")
	fs.StringVar(&input.BusinessName, "business", "", "pharmacy business name")
	fs.StringVar(&input.PharmacyLicense, "license", "", "pharmacy license number")
	fs.StringVar(&input.Address.Street, "street", "", "street address")
	fs.StringVar(&input.Address.City, "city", "", "city")
	fs.StringVar(&input.Address.State, "state", "", "state")
	fs.StringVar(&input.Address.Zip, "zip", "", "zip code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.auth.RegisterPharmacy(ctx, input)
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("registered, log in to start ordering")
		return nil
	}
	fmt.Printf("registered %s, log in to start ordering\n", user.Email)
	return nil
}

func (a *app) cmdWhoami() error {
	user := a.auth.CurrentUser()
	if user == nil {
		fmt.Println("not logged in")
		return nil
	}
	return printJSON(user)
}

func (a *app) cmdVendors(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vendors", flag.ExitOnError)
	id := fs.String("id", "", "show a single vendor")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id != "" {
		vendor, err := a.vendors.Get(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(vendor)
	}

	res, err := a.vendors.List(ctx, pagination.Params{Page: *page, Limit: *limit})
	if err != nil {
		return err
	}
	for _, v := range res.Vendors {
		fmt.Printf("%s  %-30s  rating %.1f\n", v.ID, v.BusinessName, v.Rating)
	}
	fmt.Printf("page %d of %d (%d vendors)\n", res.Pagination.Page, res.Pagination.Pages, res.Pagination.Total)
	return nil
}

func (a *app) cmdMedications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("meds", flag.ExitOnError)
	id := fs.String("id", "", "show a single medication")
	vendorID := fs.String("vendor", "", "restrict to one vendor's catalog")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id != "" {
		medication, err := a.meds.Get(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(medication)
	}

	params := pagination.Params{Page: *page, Limit: *limit}
	var res *medications.ListResult
	var err error
	if *vendorID != "" {
		res, err = a.meds.ListByVendor(ctx, *vendorID, params)
	} else {
		res, err = a.meds.List(ctx, params)
	}
	if err != nil {
		return err
	}
	for _, m := range res.Medications {
		fmt.Printf("%s  %-30s  %s  stock %d\n", m.ID, m.Name, cart.DisplayString(m.EffectivePrice()), m.Stock)
	}
	fmt.Printf("page %d of %d (%d medications)\n", res.Pagination.Page, res.Pagination.Pages, res.Pagination.Total)
	return nil
}

// itemFlags collects repeated -item medicationID=quantity flags.
type itemFlags map[string]int

func (f itemFlags) String() string { return "" }

func (f itemFlags) Set(value string) error {
	id, qtyRaw, found := strings.Cut(value, "=")
	if !found || id == "" {
		return fmt.Errorf("item must be medicationID=quantity, got %q", value)
	}
	qty, err := strconv.Atoi(qtyRaw)
	if err != nil || qty <= 0 {
		return fmt.Errorf("quantity must be a positive integer, got %q", qtyRaw)
	}
	f[id] = qty
	return nil
}

func (a *app) cmdSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	vendorID := fs.String("vendor", "", "vendor to order from")
	method := fs.String("payment", string(enums.PaymentMethodInvoice), "payment method")
	contactName := fs.String("contact-name", "", "delivery contact name")
	contactPhone := fs.String("contact-phone", "", "delivery contact phone")
	street := fs.String("street", "", "delivery street")
	city := fs.String("city", "", "delivery city")
	state := fs.String("state", "", "delivery state")
	zip := fs.String("zip", "", "delivery zip")
	notes := fs.String("notes", "", "delivery notes")
	items := itemFlags{}
	fs.Var(items, "item", "cart line as medicationID=quantity (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *vendorID == "" {
		return fmt.Errorf("-vendor is required")
	}

	paymentMethod, err := enums.ParsePaymentMethod(*method)
	if err != nil {
		return err
	}

	flow, err := cart.NewFlow(a.orders, a.meds, a.sess, a.log)
	if err != nil {
		return err
	}
	flow.OnCatalogRefresh(func(catalog []models.Medication) {
		fmt.Println("current stock:")
		for _, m := range catalog {
			fmt.Printf("  %s  %-30s  stock %d\n", m.ID, m.Name, m.Stock)
		}
	})

	for id, qty := range items {
		medication, err := a.meds.Get(ctx, id)
		if err != nil {
			return err
		}
		if medication.VendorID != *vendorID {
			return fmt.Errorf("medication %s belongs to vendor %s", id, medication.VendorID)
		}
		for i := 0; i < qty; i++ {
			if err := flow.AddToCart(*medication, nil); err != nil {
				return err
			}
		}
	}

	totals := flow.Totals()
	fmt.Printf("subtotal %s  tax %s  delivery %s  total %s\n",
		cart.DisplayString(totals.Subtotal),
		cart.DisplayString(totals.Tax),
		cart.DisplayString(totals.DeliveryFee),
		cart.DisplayString(totals.Total))

	delivery := models.DeliveryInfo{
		Address:       types.Address{Street: *street, City: *city, State: *state, Zip: *zip},
		ContactName:   *contactName,
		ContactPhone:  *contactPhone,
		DeliveryNotes: *notes,
	}
	conf, err := flow.SubmitOrder(ctx, paymentMethod, delivery)
	if err != nil {
		return err
	}
	fmt.Printf("order %s confirmed, status %s, charged %s\n",
		conf.OrderID, conf.Status, cart.DisplayString(conf.Total))
	return nil
}

func (a *app) cmdOrders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	id := fs.String("id", "", "show a single order")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id != "" {
		order, err := a.orders.Get(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(order)
	}

	res, err := a.orders.List(ctx, pagination.Params{Page: *page, Limit: *limit})
	if err != nil {
		return err
	}
	for _, o := range res.Orders {
		fmt.Printf("%s  %-16s  %s  step %d/%d\n",
			o.ID, o.Status, cart.DisplayString(o.Total), o.Status.Step(), enums.OrderStatusDelivered.Step())
	}
	fmt.Printf("page %d of %d (%d orders)\n", res.Pagination.Page, res.Pagination.Pages, res.Pagination.Total)
	return nil
}

func (a *app) cmdTrack(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	id := fs.String("id", "", "order to track")
	follow := fs.Bool("follow", false, "stream live delivery events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tracking, err := a.orders.DeliveryTracking(ctx, *id)
	if err != nil {
		return err
	}
	if err := printJSON(tracking); err != nil {
		return err
	}
	if !*follow {
		return nil
	}
	if a.realtime == nil {
		return fmt.Errorf("realtime is disabled, cannot follow")
	}

	a.realtime.On("delivery:location", func(event realtime.Event) {
		fmt.Printf("delivery update: %s\n", event.Payload)
	})
	a.realtime.On("order:status", func(event realtime.Event) {
		fmt.Printf("status update: %s\n", event.Payload)
	})
	if err := a.realtime.Connect(ctx); err != nil {
		return err
	}
	defer a.realtime.Disconnect()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	fmt.Println("following delivery events, ctrl-c to stop")
	<-stop
	return nil
}

func (a *app) cmdAnalytics(ctx context.Context) error {
	report, err := a.orders.Analytics(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func (a *app) cmdTopSelling(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top-selling", flag.ExitOnError)
	vendorID := fs.String("vendor", "", "vendor to report on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := a.orders.TopSelling(ctx, *vendorID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Printf("%-30s  sold %d  revenue %s\n", row.Name, row.TotalSold, cart.DisplayString(row.TotalRevenue))
	}
	return nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
