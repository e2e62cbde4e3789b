package main

import "fmt"

// migrationDDL returns the entity table definitions. Every statement is
// idempotent, migrate can run on every deploy.
func migrationDDL(schema string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s."User" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  email varchar NOT NULL UNIQUE,
  full_name varchar NOT NULL DEFAULT '',
  avatar_image_url varchar NOT NULL DEFAULT '',
  created_at timestamp NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[1]s."UserCredential" (
  user_id uuid PRIMARY KEY REFERENCES %[1]s."User"(id) ON DELETE CASCADE,
  password_hash varchar NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s."FinTransaction" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  date date NOT NULL,
  value numeric NOT NULL,
  description varchar NOT NULL,
  category varchar NOT NULL DEFAULT 'Sem Categoria',
  type varchar NOT NULL,
  account_id uuid,
  budget_category_id uuid,
  scheduled_transaction_id uuid,
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fintransaction_created_by ON %[1]s."FinTransaction"(created_by);

CREATE TABLE IF NOT EXISTS %[1]s."Goal" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  name varchar NOT NULL,
  legendary_item varchar NOT NULL DEFAULT '',
  target_amount numeric NOT NULL,
  current_amount numeric NOT NULL DEFAULT 0,
  target_date date,
  status varchar NOT NULL DEFAULT 'forging',
  icon varchar NOT NULL DEFAULT '',
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS goal_created_by ON %[1]s."Goal"(created_by);

CREATE TABLE IF NOT EXISTS %[1]s."Account" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  name varchar NOT NULL,
  balance numeric NOT NULL DEFAULT 0,
  last_transaction_date date,
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS account_created_by ON %[1]s."Account"(created_by);

CREATE TABLE IF NOT EXISTS %[1]s."BudgetCategory" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  name varchar NOT NULL,
  expenses jsonb NOT NULL DEFAULT '[]'::jsonb,
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS budgetcategory_created_by ON %[1]s."BudgetCategory"(created_by);

CREATE TABLE IF NOT EXISTS %[1]s."ScheduledTransaction" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  description varchar NOT NULL,
  value numeric NOT NULL,
  type varchar NOT NULL,
  category varchar NOT NULL DEFAULT 'Sem Categoria',
  next_date date NOT NULL,
  frequency varchar NOT NULL DEFAULT 'monthly',
  active boolean NOT NULL DEFAULT true,
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scheduledtransaction_created_by ON %[1]s."ScheduledTransaction"(created_by);
`, schema)
}
