// migrate.go creates the tables the app itself owns (ChatHistory) and,
// for local SQLite work, the shop schema the admin screens expect.
package db

import (
	"context"
	"fmt"
)

var chatHistoryDDL = map[Dialect]string{
	SQLServer: `IF OBJECT_ID('ChatHistory', 'U') IS NULL
CREATE TABLE ChatHistory (
    id INT IDENTITY(1,1) PRIMARY KEY,
    conversationId NVARCHAR(64) NOT NULL,
    role NVARCHAR(16) NOT NULL,
    message NVARCHAR(MAX) NOT NULL,
    sources NVARCHAR(MAX) NULL,
    createdAt DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
)`,
	Postgres: `CREATE TABLE IF NOT EXISTS "ChatHistory" (
    id SERIAL PRIMARY KEY,
    "conversationId" VARCHAR(64) NOT NULL,
    role VARCHAR(16) NOT NULL,
    message TEXT NOT NULL,
    sources TEXT NULL,
    "createdAt" TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	SQLite: `CREATE TABLE IF NOT EXISTS ChatHistory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversationId TEXT NOT NULL,
    role TEXT NOT NULL,
    message TEXT NOT NULL,
    sources TEXT NULL,
    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
}

// EnsureChatHistory creates the ChatHistory table when missing.
func (d *DB) EnsureChatHistory(ctx context.Context) error {
	if _, err := d.X.ExecContext(ctx, chatHistoryDDL[d.Dialect]); err != nil {
		return fmt.Errorf("create ChatHistory: %w", err)
	}
	return nil
}

var demoSchema = []string{
	`CREATE TABLE IF NOT EXISTS Clientes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre VARCHAR(100) NOT NULL,
		apellido VARCHAR(100) NOT NULL,
		email VARCHAR(150),
		telefono VARCHAR(50),
		direccion VARCHAR(200),
		fecha_registro DATE
	)`,
	`CREATE TABLE IF NOT EXISTS Motos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		marca VARCHAR(50) NOT NULL,
		modelo VARCHAR(100) NOT NULL,
		anio INTEGER,
		cilindrada INTEGER,
		precio DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		categoria VARCHAR(50),
		disponible BIT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS Accesorios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre VARCHAR(100) NOT NULL,
		descripcion VARCHAR(255),
		marca VARCHAR(50),
		precio DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS Cascos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		marca VARCHAR(50) NOT NULL,
		modelo VARCHAR(100) NOT NULL,
		talle VARCHAR(10),
		color VARCHAR(30),
		precio DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS Bicicletas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		marca VARCHAR(50) NOT NULL,
		modelo VARCHAR(100) NOT NULL,
		rodado INTEGER,
		categoria VARCHAR(50),
		precio DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS Indumentarias (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre VARCHAR(100) NOT NULL,
		talle VARCHAR(10),
		marca VARCHAR(50),
		precio DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS ListaPrecios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		producto VARCHAR(150) NOT NULL,
		precio_lista DECIMAL(12,2) NOT NULL,
		vigencia DATE
	)`,
	`CREATE TABLE IF NOT EXISTS TipoComprobante (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre VARCHAR(50) NOT NULL,
		codigo VARCHAR(10) NOT NULL,
		descripcion VARCHAR(200),
		activo BIT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS Comprobantes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		id_tipo_comprobante INTEGER NOT NULL REFERENCES TipoComprobante(id),
		id_cliente INTEGER REFERENCES Clientes(id),
		numero VARCHAR(30) NOT NULL UNIQUE,
		fecha DATE NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		estado VARCHAR(20) NOT NULL DEFAULT 'Pendiente',
		observaciones VARCHAR(500)
	)`,
	`CREATE TABLE IF NOT EXISTS DetalleComprobante (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		id_comprobante INTEGER NOT NULL REFERENCES Comprobantes(id) ON DELETE CASCADE,
		id_articulo INTEGER,
		descripcion VARCHAR(200) NOT NULL,
		cantidad DECIMAL(12,2) NOT NULL,
		precio_unitario DECIMAL(12,2) NOT NULL,
		subtotal DECIMAL(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS TipoArticulo (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombre VARCHAR(50) NOT NULL,
		descripcion VARCHAR(200),
		activo BIT NOT NULL DEFAULT 1,
		fecha_creacion DATE
	)`,
	`CREATE TABLE IF NOT EXISTS Articulos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		id_tipo_articulo INTEGER NOT NULL REFERENCES TipoArticulo(id),
		nombre VARCHAR(100) NOT NULL,
		descripcion VARCHAR(255),
		marca VARCHAR(50),
		modelo VARCHAR(50),
		categoria VARCHAR(50),
		precio_venta DECIMAL(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		activo BIT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS Transacciones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tipo VARCHAR(20) NOT NULL,
		monto DECIMAL(12,2) NOT NULL,
		descripcion VARCHAR(255) NOT NULL,
		categoria VARCHAR(50) NOT NULL,
		fecha DATE NOT NULL,
		referencia_id INTEGER,
		referencia_tabla VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS Balances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fecha DATE NOT NULL UNIQUE,
		ingresos DECIMAL(12,2) NOT NULL DEFAULT 0,
		egresos DECIMAL(12,2) NOT NULL DEFAULT 0,
		balance DECIMAL(12,2) NOT NULL DEFAULT 0
	)`,
}

var demoSeed = []string{
	`INSERT INTO TipoComprobante (nombre, codigo, descripcion) VALUES
		('Factura A', 'FA', 'Factura para responsables inscriptos'),
		('Factura B', 'FB', 'Factura para consumidores finales'),
		('Factura C', 'FC', 'Factura de monotributistas'),
		('Presupuesto', 'PRE', 'Presupuesto sin valor fiscal'),
		('Remito', 'REM', 'Remito de entrega'),
		('Nota de Crédito', 'NC', 'Nota de crédito'),
		('Nota de Débito', 'ND', 'Nota de débito'),
		('Recibo', 'REC', 'Recibo de pago'),
		('Pedido', 'PED', 'Pedido de cliente')`,
	`INSERT INTO TipoArticulo (nombre, descripcion) VALUES
		('Motos', 'Motocicletas'), ('Bicicletas', 'Bicicletas'), ('Repuestos', 'Repuestos y partes')`,
}

// CreateDemoSchema builds the shop tables on SQLite, seeding lookup tables
// the first time. Other servers are expected to carry the real schema.
func (d *DB) CreateDemoSchema(ctx context.Context) error {
	if d.Dialect != SQLite {
		return fmt.Errorf("demo schema is only available for sqlite, not %s", d.Dialect)
	}
	for _, stmt := range demoSchema {
		if _, err := d.X.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create demo schema: %w", err)
		}
	}
	if err := d.EnsureChatHistory(ctx); err != nil {
		return err
	}
	var n int
	if err := d.X.GetContext(ctx, &n, "SELECT COUNT(*) FROM TipoComprobante"); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, stmt := range demoSeed {
		if _, err := d.X.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}
	return nil
}
