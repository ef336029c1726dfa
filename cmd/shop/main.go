package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/example/duka-storefront/internal/api"
	"github.com/example/duka-storefront/internal/cart"
	"github.com/example/duka-storefront/internal/catalog"
	"github.com/example/duka-storefront/internal/checkout"
	"github.com/example/duka-storefront/internal/config"
	"github.com/example/duka-storefront/internal/payment"
	"github.com/example/duka-storefront/internal/session"
)

// deps wires the client components for one CLI invocation. Services are
// injected explicitly; nothing is ambient.
type deps struct {
	cfg     config.Config
	store   *session.SQLiteStore
	gate    *session.Gate
	client  *api.Client
	cart    *cart.Synchronizer
	catalog *catalog.Service
}

func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	store, err := session.OpenSQLiteStore(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	gate := session.NewGate(store)
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, gate)
	synchronizer := cart.NewSynchronizer(client)
	gate.Subscribe(synchronizer.OnAuthChange)

	return &deps{
		cfg:     cfg,
		store:   store,
		gate:    gate,
		client:  client,
		cart:    synchronizer,
		catalog: catalog.NewService(client),
	}, nil
}

func (d *deps) close() {
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close credential store")
	}
}

func main() {
	app := &cli.App{
		Name:  "shop",
		Usage: "storefront client: browse products, manage the cart, check out with M-Pesa",
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			productsCommand(),
			cartCommand(),
			checkoutCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.close()

			err = d.gate.Login(c.Context, d.client, api.Credentials{
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}
			user := d.gate.CurrentUser()
			fmt.Printf("Logged in as %s (%s)\n", user.FullName, user.Email)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out and clear stored credentials",
		Action: func(c *cli.Context) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.close()

			d.gate.Logout()
			fmt.Println("Logged out")
			return nil
		},
	}
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "list products",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "category slug"},
			&cli.BoolFlag{Name: "featured", Usage: "featured shelf only"},
		},
		Action: func(c *cli.Context) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.close()

			var products []api.Product
			if c.Bool("featured") {
				d.catalog.LoadFeatured(c.Context)
				products = d.catalog.Featured()
			} else {
				d.catalog.LoadProducts(c.Context, c.String("category"))
				products = d.catalog.Products()
			}
			if len(products) == 0 {
				fmt.Println("No products found")
				return nil
			}
			for _, p := range products {
				fmt.Printf("%6d  %-40s KES %10.2f  (stock %d)\n", p.ID, p.Name, p.Price, p.Stock)
			}
			return nil
		},
	}
}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "show and mutate the shopping cart",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current cart",
				Action: func(c *cli.Context) error {
					d, err := buildDeps()
					if err != nil {
						return err
					}
					defer d.close()
					d.cart.Refresh(c.Context)
					printCart(d.cart)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "add a product to the cart",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "product", Required: true},
					&cli.IntFlag{Name: "qty", Value: 1},
					&cli.StringFlag{Name: "color"},
					&cli.StringFlag{Name: "size"},
				},
				Action: func(c *cli.Context) error {
					if c.Int("qty") < 1 {
						return cart.ErrInvalidQuantity
					}
					d, err := buildDeps()
					if err != nil {
						return err
					}
					defer d.close()
					if err := d.cart.AddItem(c.Context, c.Int64("product"), c.Int("qty"), c.String("color"), c.String("size")); err != nil {
						return err
					}
					fmt.Printf("Added. Cart now holds %d item(s).\n", d.cart.ItemCount())
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "change an item's quantity",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "item", Required: true},
					&cli.IntFlag{Name: "qty", Required: true},
				},
				Action: func(c *cli.Context) error {
					d, err := buildDeps()
					if err != nil {
						return err
					}
					defer d.close()
					if err := d.cart.UpdateItem(c.Context, c.Int64("item"), c.Int("qty")); err != nil {
						return err
					}
					printCart(d.cart)
					return nil
				},
			},
			{
				Name:  "rm",
				Usage: "remove an item",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "item", Required: true},
				},
				Action: func(c *cli.Context) error {
					d, err := buildDeps()
					if err != nil {
						return err
					}
					defer d.close()
					if err := d.cart.RemoveItem(c.Context, c.Int64("item")); err != nil {
						return err
					}
					printCart(d.cart)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "empty the cart",
				Action: func(c *cli.Context) error {
					d, err := buildDeps()
					if err != nil {
						return err
					}
					defer d.close()
					if err := d.cart.Clear(c.Context); err != nil {
						return err
					}
					fmt.Println("Cart cleared")
					return nil
				},
			},
		},
	}
}

func printCart(s *cart.Synchronizer) {
	snapshot := s.Snapshot()
	if snapshot == nil || len(snapshot.Items) == 0 {
		fmt.Println("Your cart is empty")
		return
	}
	for _, item := range snapshot.Items {
		name := "(unknown product)"
		if item.Product != nil {
			name = item.Product.Name
		}
		variant := ""
		if item.SelectedColor != "" {
			variant += " shade=" + item.SelectedColor
		}
		if item.SelectedSize != "" {
			variant += " size=" + item.SelectedSize
		}
		fmt.Printf("%6d  %-36s x%-3d KES %10.2f%s\n", item.ID, name, item.Quantity, item.Subtotal, variant)
	}
	fmt.Printf("Total: KES %.2f\n", snapshot.Total)
}

func checkoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "review the cart, enter delivery details and pay with M-Pesa",
		Action: func(c *cli.Context) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			d.cart.Refresh(ctx)
			flow := checkout.NewFlow(d.gate, d.cart, d.client, d.cfg.DeliveryFee)
			return runCheckout(ctx, d, flow)
		},
	}
}

// runCheckout drives the three checkout stages on the terminal. The
// entry guard is re-evaluated before every stage because auth and cart
// state can change underneath the flow.
func runCheckout(ctx context.Context, d *deps, flow *checkout.Flow) error {
	in := bufio.NewScanner(os.Stdin)

	for {
		switch flow.Evaluate() {
		case checkout.RedirectLogin:
			return fmt.Errorf("you must log in before checking out (shop login)")
		case checkout.RedirectCart:
			return fmt.Errorf("your cart is empty; add items before checking out")
		}

		switch flow.Stage() {
		case checkout.StageReview:
			fmt.Println("-- Cart review --")
			printCart(d.cart)
			if !confirm(in, "Continue to delivery details?") {
				return nil
			}
			if err := flow.Next(); err != nil {
				return err
			}

		case checkout.StageDelivery:
			fmt.Println("-- Delivery details --")
			form := flow.Delivery()
			form.FullName = prompt(in, "Full name", form.FullName)
			form.PhoneNumber = prompt(in, "Phone number (for M-Pesa)", form.PhoneNumber)
			form.County = prompt(in, "County", form.County)
			form.Town = prompt(in, "Town / city", form.Town)
			form.Address = prompt(in, "Street / building / apartment", form.Address)
			flow.SetDelivery(form)
			if err := flow.Next(); err != nil {
				fmt.Println("!", err)
				continue // stay on delivery, re-prompt
			}

		case checkout.StagePayment:
			return runPayment(ctx, d, flow, in)
		}
	}
}

func runPayment(ctx context.Context, d *deps, flow *checkout.Flow, in *bufio.Scanner) error {
	fmt.Println("-- Payment --")
	fmt.Printf("Subtotal:     KES %.2f\n", d.cart.Total())
	fmt.Printf("Delivery fee: KES %.2f\n", d.cfg.DeliveryFee)
	fmt.Printf("Total:        KES %.2f\n", flow.Total())
	if !confirm(in, "Place order and pay with M-Pesa?") {
		return nil
	}

	order, err := flow.PlaceOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	fmt.Printf("Order #%d placed.\n", order.ID)

	coordinator := payment.NewCoordinator(d.client, d.cfg.PaymentPoll, d.cfg.PaymentTimeout)
	phone := flow.Delivery().PhoneNumber
	if err := coordinator.Initiate(ctx, order.ID, phone); err != nil {
		return fmt.Errorf("payment failed: %w", err)
	}
	fmt.Printf("STK push sent to %s. Enter your M-Pesa PIN on your phone to authorize.\n", phone)

	if d.cfg.SimulatePayment {
		if err := coordinator.SimulateSettlement(ctx, order.ID); err != nil {
			log.WithError(err).Warn("Failed to simulate settlement")
		}
	}

	select {
	case <-coordinator.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if coordinator.Status() == payment.StatusSuccess {
		fmt.Println("Payment successful! Asante sana.")
		return nil
	}
	return fmt.Errorf("payment failed; you can retry with order #%d", order.ID)
}

func prompt(in *bufio.Scanner, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !in.Scan() {
		return current
	}
	text := strings.TrimSpace(in.Text())
	if text == "" {
		return current
	}
	return text
}

func confirm(in *bufio.Scanner, label string) bool {
	fmt.Printf("%s [y/N]: ", label)
	if !in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(in.Text()))
	return answer == "y" || answer == "yes"
}
