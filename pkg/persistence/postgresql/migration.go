package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow aggregates. Task runs and exceptions are part of the
			-- aggregate and are saved with it, so they live in JSONB columns.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				clinician_id VARCHAR(255) NOT NULL,
				destination_id VARCHAR(255) NOT NULL,
				destination_type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				task_runs JSONB NOT NULL DEFAULT '[]',
				exceptions JSONB NOT NULL DEFAULT '[]',
				evidence_bundle_id VARCHAR(255),
				cancelled_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_clinician_id ON workflows(clinician_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Append-only audit trail. The unique (workflow_id, seq) index
			-- enforces sequence integrity at the storage layer.
			CREATE TABLE audit_events (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				seq BIGINT NOT NULL,
				actor VARCHAR(255) NOT NULL,
				action VARCHAR(100) NOT NULL,
				payload_ref VARCHAR(255),
				details JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_audit_events_workflow_seq ON audit_events(workflow_id, seq);
			CREATE INDEX idx_audit_events_workflow_id ON audit_events(workflow_id);

			-- One evidence bundle per workflow.
			CREATE TABLE evidence_bundles (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL UNIQUE,
				clinician_id VARCHAR(255) NOT NULL,
				fields JSONB NOT NULL DEFAULT '[]',
				audit_trail JSONB NOT NULL DEFAULT '[]',
				generated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_evidence_bundles_clinician_id ON evidence_bundles(clinician_id);
		`,
	}
}
