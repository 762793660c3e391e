package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
)

// uploads opens the files named on the command line and closes them together.
type uploads struct {
	closers []io.Closer
}

func (u *uploads) open(path string) (*api.File, error) {
	if path == "" {
		return nil, nil
	}
	f, c, err := api.OpenFile(path)
	if err != nil {
		return nil, err
	}
	u.closers = append(u.closers, c)
	return f, nil
}

func (u *uploads) close() {
	for _, c := range u.closers {
		_ = c.Close()
	}
}

func groupCmd(use, short string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}
	cmd.AddCommand(subs...)
	return cmd
}

func parseStatus(s string) (domain.Status, error) {
	st := domain.Status(strings.ToLower(strings.TrimSpace(s)))
	if st != "" && !st.Valid() {
		return "", fmt.Errorf("status must be active or inactive, got %q", s)
	}
	return st, nil
}

// --- banners

type bannerFlags struct {
	title, url, status, image string
}

func (b *bannerFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&b.title, "title", "", "banner title")
	fs.StringVar(&b.url, "url", "", "link target")
	fs.StringVar(&b.status, "status", "", "active or inactive")
	fs.StringVar(&b.image, "image", "", "image file")
}

// apply overlays the flags the user set onto in.
func (b *bannerFlags) apply(fs *pflag.FlagSet, in *api.BannerInput, up *uploads) error {
	if fs.Changed("title") {
		in.Title = b.title
	}
	if fs.Changed("url") {
		in.URL = b.url
	}
	if fs.Changed("status") {
		st, err := parseStatus(b.status)
		if err != nil {
			return err
		}
		in.Status = st
	}
	img, err := up.open(b.image)
	if err != nil {
		return err
	}
	in.Image = img
	return nil
}

func newBannersCmd(a *App) *cobra.Command {
	svc := func() crud[domain.Banner] { return a.client.Banners() }
	subs := resourceCmds(a, "banner", svc, renderBanners, showBanner)

	var cf bannerFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			var up uploads
			defer up.close()
			var in api.BannerInput
			if err := cf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			b, err := a.client.Banners().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Created banner %s\n", b.ID)
			return nil
		},
	}
	cf.bind(create.Flags())

	var uf bannerFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a banner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			cur, err := a.client.Banners().Get(ctx, args[0])
			if err != nil {
				return err
			}
			var up uploads
			defer up.close()
			in := api.BannerInput{Title: cur.Title, URL: cur.URL, Status: cur.Status}
			if err := uf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			if _, err := a.client.Banners().Update(ctx, args[0], in); err != nil {
				return err
			}
			a.printf("Updated banner %s\n", args[0])
			return nil
		},
	}
	uf.bind(update.Flags())

	return groupCmd("banners", "Manage storefront banners", append(subs, create, update)...)
}

func renderBanners(w io.Writer, items []domain.Banner) error {
	t := newTable(w, "ID", "TITLE", "STATUS", "URL", "UPDATED")
	for _, b := range items {
		t.row(b.ID, b.Title, b.Status, b.URL, shortDate(b.UpdatedAt))
	}
	return t.flush()
}

func showBanner(w io.Writer, b domain.Banner) {
	fmt.Fprintf(w, "ID:      %s\nTitle:   %s\nStatus:  %s\nURL:     %s\nImage:   %s\nCreated: %s\n",
		b.ID, b.Title, b.Status, b.URL, b.Image.Best(), shortDate(b.CreatedAt))
}

// --- brands

type brandFlags struct {
	name, status, logo string
	featured           bool
}

func (b *brandFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&b.name, "name", "", "brand name")
	fs.StringVar(&b.status, "status", "", "active or inactive")
	fs.BoolVar(&b.featured, "featured", false, "show on the storefront home page")
	fs.StringVar(&b.logo, "logo", "", "logo file")
}

func (b *brandFlags) apply(fs *pflag.FlagSet, in *api.BrandInput, up *uploads) error {
	if fs.Changed("name") {
		in.Name = b.name
	}
	if fs.Changed("featured") {
		in.IsFeatured = b.featured
	}
	if fs.Changed("status") {
		st, err := parseStatus(b.status)
		if err != nil {
			return err
		}
		in.Status = st
	}
	logo, err := up.open(b.logo)
	if err != nil {
		return err
	}
	in.Logo = logo
	return nil
}

func newBrandsCmd(a *App) *cobra.Command {
	svc := func() crud[domain.Brand] { return a.client.Brands() }
	subs := resourceCmds(a, "brand", svc, renderBrands, showBrand)

	var cf brandFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a brand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			var up uploads
			defer up.close()
			var in api.BrandInput
			if err := cf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			b, err := a.client.Brands().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Created brand %s\n", b.ID)
			return nil
		},
	}
	cf.bind(create.Flags())

	var uf brandFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			cur, err := a.client.Brands().Get(ctx, args[0])
			if err != nil {
				return err
			}
			var up uploads
			defer up.close()
			in := api.BrandInput{Name: cur.Name, Status: cur.Status, IsFeatured: cur.IsFeatured}
			if err := uf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			if _, err := a.client.Brands().Update(ctx, args[0], in); err != nil {
				return err
			}
			a.printf("Updated brand %s\n", args[0])
			return nil
		},
	}
	uf.bind(update.Flags())

	return groupCmd("brands", "Manage brands", append(subs, create, update)...)
}

func renderBrands(w io.Writer, items []domain.Brand) error {
	t := newTable(w, "ID", "NAME", "STATUS", "FEATURED", "UPDATED")
	for _, b := range items {
		t.row(b.ID, b.Name, b.Status, yesNo(b.IsFeatured), shortDate(b.UpdatedAt))
	}
	return t.flush()
}

func showBrand(w io.Writer, b domain.Brand) {
	fmt.Fprintf(w, "ID:       %s\nName:     %s\nStatus:   %s\nFeatured: %s\nLogo:     %s\n",
		b.ID, b.Name, b.Status, yesNo(b.IsFeatured), b.Logo.Best())
}

// --- categories

type categoryFlags struct {
	name, status, parent, image string
	featured, inMenu            bool
	brands                      []string
}

func (c *categoryFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "category name")
	fs.StringVar(&c.status, "status", "", "active or inactive")
	fs.BoolVar(&c.featured, "featured", false, "show on the storefront home page")
	fs.BoolVar(&c.inMenu, "in-menu", false, "list in the navigation menu")
	fs.StringVar(&c.parent, "parent", "", "parent category id")
	fs.StringSliceVar(&c.brands, "brand", nil, "brand id (repeatable)")
	fs.StringVar(&c.image, "image", "", "image file")
}

func (c *categoryFlags) apply(fs *pflag.FlagSet, in *api.CategoryInput, up *uploads) error {
	if fs.Changed("name") {
		in.Name = c.name
	}
	if fs.Changed("featured") {
		in.IsFeatured = c.featured
	}
	if fs.Changed("in-menu") {
		in.InMenu = c.inMenu
	}
	if fs.Changed("parent") {
		in.ParentID = c.parent
	}
	if fs.Changed("brand") {
		in.Brands = c.brands
	}
	if fs.Changed("status") {
		st, err := parseStatus(c.status)
		if err != nil {
			return err
		}
		in.Status = st
	}
	img, err := up.open(c.image)
	if err != nil {
		return err
	}
	in.Image = img
	return nil
}

func newCategoriesCmd(a *App) *cobra.Command {
	svc := func() crud[domain.Category] { return a.client.Categories() }
	subs := resourceCmds(a, "category", svc, renderCategories, showCategory)

	var cf categoryFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			var up uploads
			defer up.close()
			var in api.CategoryInput
			if err := cf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			c, err := a.client.Categories().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Created category %s\n", c.ID)
			return nil
		},
	}
	cf.bind(create.Flags())

	var uf categoryFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			cur, err := a.client.Categories().Get(ctx, args[0])
			if err != nil {
				return err
			}
			var up uploads
			defer up.close()
			in := api.CategoryInput{
				Name:       cur.Name,
				Status:     cur.Status,
				IsFeatured: cur.IsFeatured,
				InMenu:     cur.InMenu,
				ParentID:   cur.ParentID,
				Brands:     cur.Brands,
			}
			if err := uf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			if _, err := a.client.Categories().Update(ctx, args[0], in); err != nil {
				return err
			}
			a.printf("Updated category %s\n", args[0])
			return nil
		},
	}
	uf.bind(update.Flags())

	return groupCmd("categories", "Manage product categories", append(subs, create, update)...)
}

func renderCategories(w io.Writer, items []domain.Category) error {
	t := newTable(w, "ID", "NAME", "STATUS", "FEATURED", "MENU", "PARENT")
	for _, c := range items {
		parent := c.ParentID
		if parent == "" {
			parent = "-"
		}
		t.row(c.ID, c.Name, c.Status, yesNo(c.IsFeatured), yesNo(c.InMenu), parent)
	}
	return t.flush()
}

func showCategory(w io.Writer, c domain.Category) {
	fmt.Fprintf(w, "ID:       %s\nName:     %s\nStatus:   %s\nFeatured: %s\nIn menu:  %s\n",
		c.ID, c.Name, c.Status, yesNo(c.IsFeatured), yesNo(c.InMenu))
	if c.ParentID != "" {
		fmt.Fprintf(w, "Parent:   %s\n", c.ParentID)
	}
	if len(c.Brands) > 0 {
		fmt.Fprintf(w, "Brands:   %s\n", strings.Join(c.Brands, ", "))
	}
	if img := c.Image.Best(); img != "" {
		fmt.Fprintf(w, "Image:    %s\n", img)
	}
}

// --- products

type productFlags struct {
	name, status, brand, description, sku, seller string
	price, discount                               string
	featured                                      bool
	stock                                         int
	categories, images                            []string
}

func (p *productFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&p.name, "name", "", "product name")
	fs.StringVar(&p.status, "status", "", "active or inactive")
	fs.BoolVar(&p.featured, "featured", false, "show on the storefront home page")
	fs.StringVar(&p.brand, "brand", "", "brand id")
	fs.StringSliceVar(&p.categories, "category", nil, "category id (repeatable)")
	fs.StringVar(&p.description, "description", "", "product description")
	fs.StringVar(&p.price, "price", "", "unit price")
	fs.StringVar(&p.discount, "discount", "", "discount amount")
	fs.IntVar(&p.stock, "stock", 0, "units in stock")
	fs.StringVar(&p.sku, "sku", "", "stock keeping unit")
	fs.StringVar(&p.seller, "seller", "", "seller user id")
	fs.StringSliceVar(&p.images, "image", nil, "image file (repeatable)")
}

func (p *productFlags) apply(fs *pflag.FlagSet, in *api.ProductInput, up *uploads) error {
	if fs.Changed("name") {
		in.Name = p.name
	}
	if fs.Changed("featured") {
		in.IsFeatured = p.featured
	}
	if fs.Changed("brand") {
		in.Brand = p.brand
	}
	if fs.Changed("category") {
		in.Categories = p.categories
	}
	if fs.Changed("description") {
		in.Description = p.description
	}
	if fs.Changed("stock") {
		in.Stock = p.stock
	}
	if fs.Changed("sku") {
		in.SKU = p.sku
	}
	if fs.Changed("seller") {
		in.Seller = p.seller
	}
	if fs.Changed("status") {
		st, err := parseStatus(p.status)
		if err != nil {
			return err
		}
		in.Status = st
	}
	if fs.Changed("price") {
		d, err := decimal.NewFromString(p.price)
		if err != nil {
			return fmt.Errorf("price %q is not a number", p.price)
		}
		in.Price = d
	}
	if fs.Changed("discount") {
		d, err := decimal.NewFromString(p.discount)
		if err != nil {
			return fmt.Errorf("discount %q is not a number", p.discount)
		}
		in.Discount = d
	}
	for _, path := range p.images {
		f, err := up.open(path)
		if err != nil {
			return err
		}
		in.Images = append(in.Images, f)
	}
	return nil
}

func newProductsCmd(a *App) *cobra.Command {
	svc := func() crud[domain.Product] { return a.client.Products() }
	subs := resourceCmds(a, "product", svc, renderProducts, showProduct)

	var cf productFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			var up uploads
			defer up.close()
			var in api.ProductInput
			if err := cf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			p, err := a.client.Products().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printf("Created product %s (sells at %s)\n", p.ID, in.AfterDiscount().StringFixed(2))
			return nil
		},
	}
	cf.bind(create.Flags())

	var uf productFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			cur, err := a.client.Products().Get(ctx, args[0])
			if err != nil {
				return err
			}
			var up uploads
			defer up.close()
			in := productInputFrom(*cur)
			if err := uf.apply(cmd.Flags(), &in, &up); err != nil {
				return err
			}
			if _, err := a.client.Products().Update(ctx, args[0], in); err != nil {
				return err
			}
			a.printf("Updated product %s\n", args[0])
			return nil
		},
	}
	uf.bind(update.Flags())

	return groupCmd("products", "Manage the product catalog", append(subs, create, update)...)
}

func productInputFrom(p domain.Product) api.ProductInput {
	in := api.ProductInput{
		Name:        p.Name,
		Status:      p.Status,
		IsFeatured:  p.IsFeatured,
		Brand:       p.Brand.ID,
		Description: p.Description,
		Price:       p.Price,
		Discount:    p.Discount,
		Stock:       p.Stock,
		SKU:         p.SKU,
		Seller:      p.Seller.ID,
	}
	for _, c := range p.Categories {
		in.Categories = append(in.Categories, c.ID)
	}
	return in
}

func renderProducts(w io.Writer, items []domain.Product) error {
	t := newTable(w, "ID", "NAME", "BRAND", "PRICE", "SELLS AT", "STOCK", "STATUS")
	for _, p := range items {
		t.row(p.ID, p.Name, p.Brand.Name, p.Price.StringFixed(2), p.AfterDiscount.StringFixed(2), p.Stock, p.Status)
	}
	return t.flush()
}

func showProduct(w io.Writer, p domain.Product) {
	cats := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		cats = append(cats, c.Name)
	}
	fmt.Fprintf(w, "ID:          %s\nName:        %s\nStatus:      %s\nFeatured:    %s\n",
		p.ID, p.Name, p.Status, yesNo(p.IsFeatured))
	fmt.Fprintf(w, "Brand:       %s\nCategories:  %s\nSeller:      %s\n",
		p.Brand.Name, strings.Join(cats, ", "), p.Seller.Name)
	fmt.Fprintf(w, "Price:       %s\nDiscount:    %s\nSells at:    %s\nStock:       %d\nSKU:         %s\n",
		p.Price.StringFixed(2), p.Discount.StringFixed(2), p.AfterDiscount.StringFixed(2), p.Stock, p.SKU)
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
}
