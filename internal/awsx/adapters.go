package awsx

import "context"

// RouteResolver binds a Route53Inspector to a concrete zone and record so
// callers can ask only "which region is active right now".
type RouteResolver struct {
	Inspector  *Route53Inspector
	ZoneName   string
	RecordName string
}

// ActiveEndpoint returns the region currently serving the bound record.
func (r *RouteResolver) ActiveEndpoint(ctx context.Context) (string, error) {
	return r.Inspector.ActiveEndpoint(ctx, r.ZoneName, r.RecordName)
}

// PromotionProbe binds an AuroraInspector to a global cluster and the
// region whose member is expected to take over the writer role.
type PromotionProbe struct {
	Inspector       *AuroraInspector
	GlobalClusterID string
	Region          string
}

// Promoted reports whether the bound region now holds the writer.
func (p *PromotionProbe) Promoted(ctx context.Context) (bool, error) {
	return p.Inspector.Promoted(ctx, p.GlobalClusterID, p.Region)
}
