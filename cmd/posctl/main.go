package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cupoftea4/pos-mysql/internal/auth"
	"github.com/cupoftea4/pos-mysql/internal/catalog"
	"github.com/cupoftea4/pos-mysql/internal/config"
	"github.com/cupoftea4/pos-mysql/internal/logging"
	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/orders"
	"github.com/cupoftea4/pos-mysql/internal/receipt"
	"github.com/cupoftea4/pos-mysql/internal/reports"
	"github.com/cupoftea4/pos-mysql/internal/store"
)

var reader = bufio.NewReader(os.Stdin)

type console struct {
	db      *store.Store
	auth    *auth.Service
	catalog *catalog.Service
	orders  *orders.Engine
	reports *reports.Aggregator
	receipt *receipt.Renderer
	who     model.Identity
}

func main() {
	configPath := flag.String("config", os.Getenv("POS_CONFIG"), "Path to YAML config file")
	operator := flag.String("as", "", "Email of the user the console acts as")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.LoadFromEnv()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.DSN(), store.PoolOptions{MaxOpenConns: cfg.Database.MaxOpenConns}, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	c := &console{
		db:      db,
		auth:    auth.NewService(db, auth.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL()), cfg.Auth.BcryptCost, log),
		catalog: catalog.NewService(db, log),
		orders:  orders.NewEngine(orders.NewStoreLedger(db), db, log),
		reports: reports.NewAggregator(db),
		receipt: receipt.NewRenderer(cfg.Receipt, time.Local),
	}
	if *operator != "" {
		c.actAs(ctx, *operator)
	}
	c.loop(ctx)
}

func (c *console) loop(ctx context.Context) {
	for {
		fmt.Println("\n1: Apply Migrations")
		fmt.Println("2: Register User")
		fmt.Println("3: Act As User")
		fmt.Println("4: Add Category")
		fmt.Println("5: Add Item")
		fmt.Println("6: List Items")
		fmt.Println("7: Create Order")
		fmt.Println("8: Refund Order")
		fmt.Println("9: Sales Report")
		fmt.Println("R: Save Receipt PDF")
		fmt.Println("S: Simulate Concurrent Orders")
		fmt.Println("X: Exit")
		choice := readLine("Enter choice: ")

		switch strings.ToUpper(choice) {
		case "1":
			n, err := c.db.Migrate()
			if err != nil {
				fmt.Printf("Error applying migrations: %v\n", err)
				continue
			}
			fmt.Printf("Applied %d migrations.\n", n)

		case "2":
			email := readLine("Enter Email: ")
			password := readLine("Enter Password: ")
			role := readLine("Enter Role (admin/user): ")
			if _, err := c.auth.Register(ctx, email, password, role); err != nil {
				fmt.Printf("Error registering user: %v\n", err)
				continue
			}
			fmt.Println("User registered.")
			c.actAs(ctx, email)

		case "3":
			c.actAs(ctx, readLine("Enter Email: "))

		case "4":
			if !c.requireUser() {
				continue
			}
			cat, err := c.catalog.CreateCategory(ctx, c.who, readLine("Enter Name: "))
			if err != nil {
				fmt.Printf("Error adding category: %v\n", err)
				continue
			}
			fmt.Printf("Added Category: %+v\n", cat)

		case "5":
			if !c.requireUser() {
				continue
			}
			name := readLine("Enter Name: ")
			cost := readDecimal("Enter Original Price: ")
			retail := readDecimal("Enter Retail Price: ")
			wholesale := readDecimal("Enter Wholesale Price: ")
			categoryID := int64(readInt("Enter Category ID: "))
			stock := readInt("Enter Stock: ")
			it, err := c.catalog.CreateItem(ctx, c.who, model.ItemInput{
				Name:           &name,
				OriginalPrice:  &cost,
				RetailPrice:    &retail,
				WholesalePrice: &wholesale,
				CategoryID:     &categoryID,
				StockQuantity:  &stock,
			})
			if err != nil {
				fmt.Printf("Error adding item: %v\n", err)
				continue
			}
			fmt.Printf("Added Item: %d %s\n", it.ItemID, it.Name)

		case "6":
			page, err := c.catalog.ListItems(ctx, c.who, readLine("Search (empty for all): "), model.Page{Number: 1, Limit: 50})
			if err != nil {
				fmt.Printf("Error retrieving items: %v\n", err)
				continue
			}
			for _, it := range page.Items {
				fmt.Printf("Item ID: %d, Name: %s, Retail: %s, Wholesale: %s, Stock: %d\n",
					it.ItemID, it.Name, it.RetailPrice, it.WholesalePrice, it.StockQuantity)
			}

		case "7":
			if !c.requireUser() {
				continue
			}
			req := orders.CreateRequest{
				SellMode:      readLine("Sell mode (retail/wholesale): "),
				PaymentMethod: readLine("Payment method (cash/kpay/wavepay/banking/card): "),
				DiscountMode:  readLine("Discount mode (none/percentage/amount): "),
			}
			if req.DiscountMode != "" && req.DiscountMode != string(model.DiscountNone) {
				req.DiscountValue = orders.Discount(readDecimal("Discount value: "))
			}
			for {
				fmt.Println("Enter order lines (enter -1 for Item ID to finish):")
				id := readInt("Enter Item ID: ")
				if id == -1 {
					break
				}
				req.Lines = append(req.Lines, orders.LineRequest{ItemID: int64(id), Quantity: readInt("Enter Quantity: ")})
			}
			created, err := c.orders.CreateOrder(ctx, c.who, req)
			if err != nil {
				fmt.Printf("Error creating order: %v\n", err)
				continue
			}
			fmt.Printf("Order %d created, total %s.\n", created.ID, created.TotalPrice)

		case "8":
			if !c.requireUser() {
				continue
			}
			id := int64(readInt("Enter Order ID to refund: "))
			if err := c.orders.RefundOrder(ctx, c.who, id); err != nil {
				fmt.Printf("Error refunding order: %v\n", err)
				continue
			}
			fmt.Println("Order refunded.")

		case "9":
			buckets, err := c.reports.SalesReport(ctx, readLine("Period (monthly/yearly): "))
			if err != nil {
				fmt.Printf("An error occurred: %v\n", err)
				continue
			}
			for _, b := range buckets {
				fmt.Printf("%s: %s from %d orders\n", b.Bucket, b.TotalSales, b.OrderCount)
			}

		case "R":
			id := int64(readInt("Enter Order ID: "))
			if err := c.saveReceipt(ctx, id); err != nil {
				fmt.Printf("Error writing receipt: %v\n", err)
			}

		case "S":
			if !c.requireUser() {
				continue
			}
			itemID := int64(readInt("Enter Item ID to simulate conflict: "))
			quantities := parseInts(readLine("Enter comma-separated quantities, one order each (e.g. 3, 3, 3): "))
			c.simulateConcurrentOrders(ctx, itemID, quantities)

		case "X":
			fmt.Println("Exiting...")
			return

		default:
			fmt.Println("Invalid choice. Please enter a valid option.")
		}
	}
}

func (c *console) actAs(ctx context.Context, email string) {
	u, err := c.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		fmt.Printf("Cannot act as %s: %v\n", email, err)
		return
	}
	c.who = model.Identity{UserID: u.UserID, Email: u.Email, Role: u.Role}
	fmt.Printf("Acting as %s (%s).\n", u.Email, u.Role)
}

func (c *console) requireUser() bool {
	if c.who.UserID == 0 {
		fmt.Println("Choose a user first (option 3).")
		return false
	}
	return true
}

func (c *console) saveReceipt(ctx context.Context, orderID int64) error {
	o, err := c.orders.Receipt(ctx, orderID)
	if err != nil {
		return err
	}
	f, err := os.Create(receipt.FileName(orderID))
	if err != nil {
		return err
	}
	if err := c.receipt.Render(f, o); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", f.Name())
	return nil
}

// simulateConcurrentOrders places one order per quantity at the same time
// against one item and shows that stock never goes below zero.
func (c *console) simulateConcurrentOrders(ctx context.Context, itemID int64, quantities []int) {
	var wg sync.WaitGroup
	fmt.Println()

	for _, qty := range quantities {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			created, err := c.orders.CreateOrder(ctx, c.who, orders.CreateRequest{
				Lines:         []orders.LineRequest{{ItemID: itemID, Quantity: qty}},
				SellMode:      string(model.SellRetail),
				PaymentMethod: string(model.PayCash),
			})
			if err != nil {
				fmt.Printf("Order Error (Quantity: %d): %v\n", qty, err)
			} else {
				fmt.Printf("Order %d placed (Quantity: %d).\n", created.ID, qty)
			}
		}(qty)
	}

	wg.Wait()

	it, err := c.db.GetItem(ctx, itemID)
	if err != nil {
		fmt.Printf("Error reading item: %v\n", err)
		return
	}
	fmt.Printf("Stock left for %s: %d\n", it.Name, it.StockQuantity)
}

func parseInts(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			fmt.Printf("Invalid number: %s\n", part)
			continue
		}
		out = append(out, n)
	}
	return out
}

func readLine(caption string) string {
	fmt.Print(caption)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}

func readInt(caption string) int {
	for {
		n, err := strconv.Atoi(readLine(caption))
		if err == nil {
			return n
		}
		fmt.Println("Please enter a whole number.")
	}
}

func readDecimal(caption string) decimal.Decimal {
	for {
		d, err := decimal.NewFromString(readLine(caption))
		if err == nil {
			return d
		}
		fmt.Println("Please enter a number.")
	}
}
