package storage

func schemaFor(d Dialect) []string {
	switch d {
	case DialectMySQL:
		return mysqlSchema
	case DialectPostgres:
		return postgresSchema
	default:
		return sqliteSchema
	}
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id               VARCHAR(64)   NOT NULL PRIMARY KEY,
		name             VARCHAR(255)  NOT NULL,
		slug             VARCHAR(255)  NOT NULL,
		description      TEXT          NOT NULL,
		price            DECIMAL(12,2) NOT NULL,
		compare_at_price DECIMAL(12,2) NULL,
		category_id      VARCHAR(64)   NOT NULL DEFAULT '',
		brand            VARCHAR(128)  NOT NULL DEFAULT '',
		images           TEXT          NOT NULL,
		featured         BOOLEAN       NOT NULL DEFAULT FALSE,
		is_active        BOOLEAN       NOT NULL DEFAULT TRUE,
		is_deleted       BOOLEAN       NOT NULL DEFAULT FALSE,
		created_at       DATETIME(6)   NOT NULL,
		updated_at       DATETIME(6)   NOT NULL,
		UNIQUE KEY uq_products_slug (slug),
		KEY idx_products_category (category_id, is_active)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS product_sizes (
		product_id VARCHAR(64) NOT NULL,
		size       VARCHAR(32) NOT NULL,
		position   INT         NOT NULL,
		stock      INT         NOT NULL CHECK (stock >= 0),
		sku        VARCHAR(64) NOT NULL DEFAULT '',
		PRIMARY KEY (product_id, size),
		CONSTRAINT fk_sizes_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  VARCHAR(64)   NOT NULL PRIMARY KEY,
		order_number        VARCHAR(32)   NOT NULL,
		user_id             VARCHAR(64)   NOT NULL,
		customer_email      VARCHAR(255)  NOT NULL DEFAULT '',
		shipping_address    TEXT          NOT NULL,
		billing_address     TEXT          NOT NULL,
		payment_method      VARCHAR(16)   NOT NULL,
		payment_status      VARCHAR(16)   NOT NULL,
		transaction_id      VARCHAR(128)  NOT NULL DEFAULT '',
		paid_at             DATETIME(6)   NULL,
		subtotal            DECIMAL(12,2) NOT NULL,
		tax                 DECIMAL(12,2) NOT NULL,
		shipping            DECIMAL(12,2) NOT NULL,
		discount            DECIMAL(12,2) NOT NULL,
		total               DECIMAL(12,2) NOT NULL,
		status              VARCHAR(16)   NOT NULL,
		carrier             VARCHAR(64)   NOT NULL DEFAULT '',
		tracking_number     VARCHAR(128)  NOT NULL DEFAULT '',
		tracking_url        VARCHAR(512)  NOT NULL DEFAULT '',
		shipped_at          DATETIME(6)   NULL,
		delivered_at        DATETIME(6)   NULL,
		notes               TEXT          NOT NULL,
		cancelled_at        DATETIME(6)   NULL,
		cancellation_reason TEXT          NOT NULL,
		version             INT           NOT NULL DEFAULT 0,
		created_at          DATETIME(6)   NOT NULL,
		updated_at          DATETIME(6)   NOT NULL,
		UNIQUE KEY uq_orders_number (order_number),
		KEY idx_orders_user (user_id, created_at),
		KEY idx_orders_status (status, created_at),
		KEY idx_orders_created (created_at)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   VARCHAR(64)   NOT NULL,
		line       INT           NOT NULL,
		product_id VARCHAR(64)   NOT NULL,
		name       VARCHAR(255)  NOT NULL,
		image      VARCHAR(512)  NOT NULL DEFAULT '',
		sku        VARCHAR(64)   NOT NULL DEFAULT '',
		size       VARCHAR(32)   NOT NULL,
		quantity   INT           NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		line_total DECIMAL(12,2) NOT NULL,
		PRIMARY KEY (order_id, line),
		CONSTRAINT fk_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS order_status_history (
		order_id   VARCHAR(64) NOT NULL,
		seq        INT         NOT NULL,
		status     VARCHAR(16) NOT NULL,
		note       TEXT        NOT NULL,
		updated_by VARCHAR(64) NOT NULL DEFAULT '',
		updated_at DATETIME(6) NOT NULL,
		PRIMARY KEY (order_id, seq),
		CONSTRAINT fk_history_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id      VARCHAR(64) NOT NULL PRIMARY KEY,
		id           VARCHAR(64) NOT NULL,
		last_item_id INT         NOT NULL DEFAULT 0,
		expires_at   DATETIME(6) NOT NULL,
		created_at   DATETIME(6) NOT NULL,
		updated_at   DATETIME(6) NOT NULL,
		KEY idx_carts_expires (expires_at)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id        VARCHAR(64)   NOT NULL,
		item_id        INT           NOT NULL,
		product_id     VARCHAR(64)   NOT NULL,
		size           VARCHAR(32)   NOT NULL,
		quantity       INT           NOT NULL,
		price_snapshot DECIMAL(12,2) NOT NULL,
		added_at       DATETIME(6)   NOT NULL,
		PRIMARY KEY (user_id, item_id),
		CONSTRAINT fk_cart_items_cart FOREIGN KEY (user_id) REFERENCES carts(user_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS order_sequences (
		day CHAR(6) NOT NULL PRIMARY KEY,
		seq BIGINT  NOT NULL
	) ENGINE=InnoDB`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id               TEXT          PRIMARY KEY,
		name             TEXT          NOT NULL,
		slug             TEXT          NOT NULL UNIQUE,
		description      TEXT          NOT NULL DEFAULT '',
		price            NUMERIC(12,2) NOT NULL,
		compare_at_price NUMERIC(12,2),
		category_id      TEXT          NOT NULL DEFAULT '',
		brand            TEXT          NOT NULL DEFAULT '',
		images           TEXT          NOT NULL DEFAULT '[]',
		featured         BOOLEAN       NOT NULL DEFAULT FALSE,
		is_active        BOOLEAN       NOT NULL DEFAULT TRUE,
		is_deleted       BOOLEAN       NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMPTZ   NOT NULL,
		updated_at       TIMESTAMPTZ   NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS product_sizes (
		product_id TEXT    NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		size       TEXT    NOT NULL,
		position   INTEGER NOT NULL,
		stock      INTEGER NOT NULL CHECK (stock >= 0),
		sku        TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (product_id, size)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  TEXT          PRIMARY KEY,
		order_number        TEXT          NOT NULL UNIQUE,
		user_id             TEXT          NOT NULL,
		customer_email      TEXT          NOT NULL DEFAULT '',
		shipping_address    TEXT          NOT NULL,
		billing_address     TEXT          NOT NULL,
		payment_method      TEXT          NOT NULL,
		payment_status      TEXT          NOT NULL,
		transaction_id      TEXT          NOT NULL DEFAULT '',
		paid_at             TIMESTAMPTZ,
		subtotal            NUMERIC(12,2) NOT NULL,
		tax                 NUMERIC(12,2) NOT NULL,
		shipping            NUMERIC(12,2) NOT NULL,
		discount            NUMERIC(12,2) NOT NULL,
		total               NUMERIC(12,2) NOT NULL,
		status              TEXT          NOT NULL,
		carrier             TEXT          NOT NULL DEFAULT '',
		tracking_number     TEXT          NOT NULL DEFAULT '',
		tracking_url        TEXT          NOT NULL DEFAULT '',
		shipped_at          TIMESTAMPTZ,
		delivered_at        TIMESTAMPTZ,
		notes               TEXT          NOT NULL DEFAULT '',
		cancelled_at        TIMESTAMPTZ,
		cancellation_reason TEXT          NOT NULL DEFAULT '',
		version             INTEGER       NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ   NOT NULL,
		updated_at          TIMESTAMPTZ   NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders (created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   TEXT          NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		line       INTEGER       NOT NULL,
		product_id TEXT          NOT NULL,
		name       TEXT          NOT NULL,
		image      TEXT          NOT NULL DEFAULT '',
		sku        TEXT          NOT NULL DEFAULT '',
		size       TEXT          NOT NULL,
		quantity   INTEGER       NOT NULL,
		unit_price NUMERIC(12,2) NOT NULL,
		line_total NUMERIC(12,2) NOT NULL,
		PRIMARY KEY (order_id, line)
	)`,
	`CREATE TABLE IF NOT EXISTS order_status_history (
		order_id   TEXT        NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		seq        INTEGER     NOT NULL,
		status     TEXT        NOT NULL,
		note       TEXT        NOT NULL DEFAULT '',
		updated_by TEXT        NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (order_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id      TEXT        PRIMARY KEY,
		id           TEXT        NOT NULL,
		last_item_id INTEGER     NOT NULL DEFAULT 0,
		expires_at   TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_carts_expires ON carts (expires_at)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id        TEXT          NOT NULL REFERENCES carts(user_id) ON DELETE CASCADE,
		item_id        INTEGER       NOT NULL,
		product_id     TEXT          NOT NULL,
		size           TEXT          NOT NULL,
		quantity       INTEGER       NOT NULL,
		price_snapshot NUMERIC(12,2) NOT NULL,
		added_at       TIMESTAMPTZ   NOT NULL,
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_sequences (
		day TEXT   PRIMARY KEY,
		seq BIGINT NOT NULL
	)`,
}

// SQLite keeps money as TEXT so decimals round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id               TEXT     PRIMARY KEY,
		name             TEXT     NOT NULL,
		slug             TEXT     NOT NULL UNIQUE,
		description      TEXT     NOT NULL DEFAULT '',
		price            TEXT     NOT NULL,
		compare_at_price TEXT,
		category_id      TEXT     NOT NULL DEFAULT '',
		brand            TEXT     NOT NULL DEFAULT '',
		images           TEXT     NOT NULL DEFAULT '[]',
		featured         BOOLEAN  NOT NULL DEFAULT 0,
		is_active        BOOLEAN  NOT NULL DEFAULT 1,
		is_deleted       BOOLEAN  NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS product_sizes (
		product_id TEXT    NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		size       TEXT    NOT NULL,
		position   INTEGER NOT NULL,
		stock      INTEGER NOT NULL CHECK (stock >= 0),
		sku        TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (product_id, size)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  TEXT     PRIMARY KEY,
		order_number        TEXT     NOT NULL UNIQUE,
		user_id             TEXT     NOT NULL,
		customer_email      TEXT     NOT NULL DEFAULT '',
		shipping_address    TEXT     NOT NULL,
		billing_address     TEXT     NOT NULL,
		payment_method      TEXT     NOT NULL,
		payment_status      TEXT     NOT NULL,
		transaction_id      TEXT     NOT NULL DEFAULT '',
		paid_at             DATETIME,
		subtotal            TEXT     NOT NULL,
		tax                 TEXT     NOT NULL,
		shipping            TEXT     NOT NULL,
		discount            TEXT     NOT NULL,
		total               TEXT     NOT NULL,
		status              TEXT     NOT NULL,
		carrier             TEXT     NOT NULL DEFAULT '',
		tracking_number     TEXT     NOT NULL DEFAULT '',
		tracking_url        TEXT     NOT NULL DEFAULT '',
		shipped_at          DATETIME,
		delivered_at        DATETIME,
		notes               TEXT     NOT NULL DEFAULT '',
		cancelled_at        DATETIME,
		cancellation_reason TEXT     NOT NULL DEFAULT '',
		version             INTEGER  NOT NULL DEFAULT 0,
		created_at          DATETIME NOT NULL,
		updated_at          DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders (created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   TEXT    NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		line       INTEGER NOT NULL,
		product_id TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		image      TEXT    NOT NULL DEFAULT '',
		sku        TEXT    NOT NULL DEFAULT '',
		size       TEXT    NOT NULL,
		quantity   INTEGER NOT NULL,
		unit_price TEXT    NOT NULL,
		line_total TEXT    NOT NULL,
		PRIMARY KEY (order_id, line)
	)`,
	`CREATE TABLE IF NOT EXISTS order_status_history (
		order_id   TEXT     NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		seq        INTEGER  NOT NULL,
		status     TEXT     NOT NULL,
		note       TEXT     NOT NULL DEFAULT '',
		updated_by TEXT     NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (order_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id      TEXT     PRIMARY KEY,
		id           TEXT     NOT NULL,
		last_item_id INTEGER  NOT NULL DEFAULT 0,
		expires_at   DATETIME NOT NULL,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_carts_expires ON carts (expires_at)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id        TEXT     NOT NULL REFERENCES carts(user_id) ON DELETE CASCADE,
		item_id        INTEGER  NOT NULL,
		product_id     TEXT     NOT NULL,
		size           TEXT     NOT NULL,
		quantity       INTEGER  NOT NULL,
		price_snapshot TEXT     NOT NULL,
		added_at       DATETIME NOT NULL,
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_sequences (
		day TEXT    PRIMARY KEY,
		seq INTEGER NOT NULL
	)`,
}
