// Embedded schema migrations for PeerCall Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    phone VARCHAR(32) NOT NULL DEFAULT '',
    adult BOOLEAN NOT NULL DEFAULT FALSE,
    topics TEXT[] NOT NULL DEFAULT '{}',
    last_match_id UUID,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_last_match_id ON users(last_match_id);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE USER AVAILABILITY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create user availability slots
-- Version: 002
-- One row per reachable call slot; slots are replaced each matching cycle.

CREATE TABLE IF NOT EXISTS user_availability (
    id SERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    available_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uniq_user_slot UNIQUE (user_id, available_at)
);

CREATE INDEX IF NOT EXISTS idx_user_availability_user_id ON user_availability(user_id);
CREATE INDEX IF NOT EXISTS idx_user_availability_at ON user_availability(available_at);
`

const migration002Down = `
DROP TABLE IF EXISTS user_availability;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE MATCHES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create matches table
-- Version: 003
-- Matches are never deleted; terminal statuses are Canceled, Complete, Invalid.

CREATE TABLE IF NOT EXISTS matches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    first_user_id UUID NOT NULL REFERENCES users(id),
    second_user_id UUID NOT NULL REFERENCES users(id),
    schedule TIMESTAMP WITH TIME ZONE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'Pending',
    link TEXT NOT NULL DEFAULT '',
    call_number INTEGER NOT NULL DEFAULT 1,
    confirmed_a UUID,
    confirmed_b UUID,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT no_self_match CHECK (first_user_id != second_user_id),
    CONSTRAINT confirmed_a_is_participant CHECK (
        confirmed_a IS NULL OR confirmed_a IN (first_user_id, second_user_id)
    ),
    CONSTRAINT confirmed_b_is_participant CHECK (
        confirmed_b IS NULL OR confirmed_b IN (first_user_id, second_user_id)
    ),
    CONSTRAINT confirmed_distinct CHECK (
        confirmed_a IS NULL OR confirmed_b IS NULL OR confirmed_a != confirmed_b
    )
);

CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_matches_schedule ON matches(schedule);
CREATE INDEX IF NOT EXISTS idx_matches_first_user ON matches(first_user_id);
CREATE INDEX IF NOT EXISTS idx_matches_second_user ON matches(second_user_id);
CREATE INDEX IF NOT EXISTS idx_matches_pending_schedule ON matches(schedule) WHERE status = 'Pending';
`

const migration003Down = `
DROP TABLE IF EXISTS matches;
`
