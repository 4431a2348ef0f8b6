package master

import (
	"context"

	"github.com/synaptica-ai/clinical-assistant/pkg/chatbot"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/document"
	"github.com/synaptica-ai/clinical-assistant/pkg/familyhistory"
	"github.com/synaptica-ai/clinical-assistant/pkg/medimage"
	"github.com/synaptica-ai/clinical-assistant/pkg/patientctx"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"github.com/synaptica-ai/clinical-assistant/pkg/teeth"
	"github.com/synaptica-ai/clinical-assistant/pkg/terminology"
	"github.com/synaptica-ai/clinical-assistant/pkg/vitals"
)

const (
	AgentDocument      = "document"
	AgentVitals        = "vitals"
	AgentFamilyHistory = "family_history"
	AgentChatbot       = "chatbot"
	AgentImage         = "image"
	AgentTeeth         = "teeth"
)

// AgentNames lists every name Agent resolves.
var AgentNames = []string{AgentDocument, AgentVitals, AgentFamilyHistory, AgentChatbot, AgentImage, AgentTeeth}

type Options struct {
	Parser *document.Parser
	Engine *chatbot.Engine
	Events kafka.Publisher
	// Catalog codes family history conditions. Nil leaves them uncoded.
	Catalog *terminology.Catalog
}

// Registry composes the clinical agents over one record store.
type Registry struct {
	events        kafka.Publisher
	store         records.Store
	aggregator    *patientctx.Aggregator
	documents     *document.Agent
	vitals        *vitals.Agent
	familyHistory *familyhistory.Agent
	chatbot       *chatbot.Engine
	images        *medimage.Agent
	teeth         *teeth.Manager
}

func New(store records.Store, opts Options) *Registry {
	parser := opts.Parser
	if parser == nil {
		parser = document.NewParser(document.NewPDFTextExtractor(), document.NewPopplerRasterizer("", 0), document.NewTesseractOCR("", ""))
	}
	engine := opts.Engine
	if engine == nil {
		engine = chatbot.NewEngine(nil, nil, chatbot.DefaultGenerateParams())
	}
	return &Registry{
		events:        opts.Events,
		store:         store,
		aggregator:    patientctx.NewAggregator(store),
		documents:     document.NewAgent(parser, store, opts.Events),
		vitals:        vitals.NewAgent(store, opts.Events),
		familyHistory: familyhistory.NewAgent(store, opts.Events).WithCatalog(opts.Catalog),
		chatbot:       engine,
		images:        medimage.NewAgent(store, opts.Events),
		teeth:         teeth.NewManager(store, opts.Events),
	}
}

// Agent looks a component up by name. Unknown names return nil, false.
func (r *Registry) Agent(name string) (interface{}, bool) {
	switch name {
	case AgentDocument:
		return r.documents, true
	case AgentVitals:
		return r.vitals, true
	case AgentFamilyHistory:
		return r.familyHistory, true
	case AgentChatbot:
		return r.chatbot, true
	case AgentImage:
		return r.images, true
	case AgentTeeth:
		return r.teeth, true
	default:
		return nil, false
	}
}

func (r *Registry) Store() records.Store                { return r.store }
func (r *Registry) Documents() *document.Agent          { return r.documents }
func (r *Registry) Vitals() *vitals.Agent               { return r.vitals }
func (r *Registry) FamilyHistory() *familyhistory.Agent { return r.familyHistory }
func (r *Registry) Chatbot() *chatbot.Engine            { return r.chatbot }
func (r *Registry) Images() *medimage.Agent             { return r.images }
func (r *Registry) Teeth() *teeth.Manager               { return r.teeth }

// BuildContext aggregates everything known about a patient. It returns
// models.ErrPatientNotFound for unknown ids.
func (r *Registry) BuildContext(ctx context.Context, patientID uint) (*models.PatientContext, error) {
	return r.aggregator.BuildContext(ctx, patientID)
}

// NotifyPatientDeleted publishes the deletion once the store has committed it.
func (r *Registry) NotifyPatientDeleted(ctx context.Context, patientID uint) {
	kafka.Notify(ctx, r.events, kafka.EventPatientDeleted, patientID, nil)
}
