package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE tenants (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				credentials JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE automation_rules (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				definition JSONB NOT NULL,
				last_run_at TIMESTAMP WITH TIME ZONE,
				last_run_status VARCHAR(50),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automation_rules_tenant_id ON automation_rules(tenant_id);
			CREATE INDEX idx_automation_rules_tenant_enabled ON automation_rules(tenant_id, enabled);

			CREATE TABLE automation_runs (
				id UUID PRIMARY KEY,
				rule_id UUID NOT NULL REFERENCES automation_rules(id) ON DELETE CASCADE,
				tenant_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'success', 'error')),
				result JSONB,
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_automation_runs_rule_started ON automation_runs(rule_id, started_at DESC);
			CREATE INDEX idx_automation_runs_tenant_id ON automation_runs(tenant_id);
		`,
	}
}
