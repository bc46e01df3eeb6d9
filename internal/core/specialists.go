package core

import "github.com/valter-silva-au/maestro/pkg/models"

func standards(standard, high, critical string) map[models.QualityLevel]string {
	return map[models.QualityLevel]string{
		models.QualityStandard: standard,
		models.QualityHigh:     high,
		models.QualityCritical: critical,
	}
}

// BuiltinHandlerDefinitions returns the default specialists in registration
// order.
func BuiltinHandlerDefinitions() []models.HandlerDefinition {
	return []models.HandlerDefinition{
		{
			Role:   "Market Research Specialist",
			Skills: []string{"competitive analysis", "market research", "strategic thinking", "data analysis", "tool evaluation", "comparative analysis"},
			QualityStandards: standards(
				"Provide basic analysis with key findings and recommendations",
				"Comprehensive analysis with detailed methodology, data sources, and strategic insights",
				"Exhaustive research with multiple data sources, risk analysis, and implementation roadmap",
			),
		},
		{
			Role:   "Swift Developer",
			Skills: []string{"swift development", "macos development", "swiftui", "uikit", "code architecture", "testing"},
			QualityStandards: standards(
				"Working code with basic tests and documentation",
				"Production-ready code with comprehensive tests, documentation, and error handling",
				"Enterprise-grade code with full test coverage, performance optimization, and security review",
			),
			Model:       "codellama:7b",
			PullRequest: true,
		},
		{
			Role:   "QA Review Specialist",
			Skills: []string{"code review", "quality assurance", "testing", "security review", "performance analysis", "pr review"},
			QualityStandards: standards(
				"Basic code review focusing on functionality and obvious issues",
				"Comprehensive review including performance, security, and maintainability",
				"Exhaustive review with security audit, performance profiling, and architectural assessment",
			),
		},
		{
			Role:   "Documentation Specialist",
			Skills: []string{"technical writing", "documentation", "api documentation", "user guides", "markdown", "content creation"},
			QualityStandards: standards(
				"Clear, well-structured documentation with basic examples",
				"Comprehensive documentation with examples, diagrams, and cross-references",
				"Enterprise-grade documentation with full coverage, interactive examples, and accessibility compliance",
			),
		},
		{
			Role:   "Strategy Specialist",
			Skills: []string{"strategic planning", "project management", "resource planning", "priority matrix", "roadmap planning", "business analysis", "stakeholder management", "risk assessment"},
			QualityStandards: standards(
				"Clear strategic analysis with basic prioritization and resource allocation",
				"Comprehensive strategic plan with detailed impact analysis, timelines, and risk mitigation",
				"Enterprise-grade strategic roadmap with stakeholder alignment, scenario planning, and success metrics",
			),
		},
		{
			Role:   "DevOps Specialist",
			Skills: []string{"devops", "access management", "environment configuration", "infrastructure", "deployment", "ci/cd", "security", "monitoring", "automation"},
			QualityStandards: standards(
				"Basic environment setup with essential tools and access",
				"Comprehensive development environment with automation, monitoring, and security best practices",
				"Production-grade infrastructure with full automation, security compliance, and disaster recovery",
			),
		},
		{
			Role:   "Tokenomics Specialist",
			Skills: []string{"tokenomics design", "economic modeling", "game theory", "financial analysis", "behavioral economics", "platform economics", "defi", "smart contracts", "token utility", "incentive design", "payment systems", "security analysis"},
			QualityStandards: standards(
				"Basic tokenomics framework with core utility mechanisms and simple economic model",
				"Comprehensive tokenomics design with detailed economic modeling, incentive analysis, and sustainability planning",
				"Enterprise-grade tokenomics with advanced economic modeling, stress testing, audit-ready documentation, and regulatory compliance",
			),
		},
		{
			Role:   "Technical Research Specialist",
			Skills: []string{"protocol analysis", "technical research", "integration planning", "api analysis", "system architecture", "technology evaluation", "feasibility analysis", "technical documentation"},
			QualityStandards: standards(
				"Basic technical research with key findings and implementation overview",
				"Comprehensive technical analysis with detailed integration plans, code examples, and risk assessment",
				"Enterprise-grade technical research with proof-of-concept implementation, security analysis, and production readiness assessment",
			),
		},
		{
			Role:   "Infrastructure Specialist",
			Skills: []string{"infrastructure analysis", "cost modeling", "performance evaluation", "vendor assessment", "scalability planning", "sla analysis", "cloud architecture", "service comparison"},
			QualityStandards: standards(
				"Basic infrastructure analysis with cost comparison and basic performance metrics",
				"Comprehensive infrastructure assessment with detailed cost modeling, performance benchmarks, and scalability planning",
				"Enterprise-grade infrastructure strategy with multi-vendor analysis, disaster recovery planning, and compliance assessment",
			),
		},
		{
			Role:   "Technical Mentor",
			Skills: []string{"technical mentoring", "knowledge transfer", "communication planning", "onboarding", "training", "documentation", "team leadership", "skill development"},
			QualityStandards: standards(
				"Basic knowledge transfer with essential information and communication plan",
				"Comprehensive mentoring program with structured learning path, documentation, and ongoing support",
				"Enterprise-grade knowledge transfer with detailed competency framework, assessment metrics, and long-term development planning",
			),
		},
		{
			Role:   "System Architect",
			Skills: []string{"system architecture", "technical documentation", "integration design", "solution design", "api design", "data modeling", "diagramming", "software design patterns", "smart contract architecture", "payment systems design", "security architecture"},
			QualityStandards: standards(
				"Clear architectural overview with key components and basic diagrams",
				"Comprehensive architecture design with detailed diagrams, data models, API specifications, and integration patterns",
				"Enterprise-grade architecture with full documentation, scalability analysis, security design, and future-proofing",
			),
		},
	}
}

// DemoTask returns the built-in demonstration task run when no manifest is
// given.
func DemoTask() models.Task {
	return models.Task{
		ID:    models.NewTaskID(),
		Title: "Competitive Analysis Research",
		Goal:  "Understand how TellUrStori compares to similar platforms to identify strategic opportunities",
		AcceptanceCriteria: []string{
			"Analysis of 3-5 competitor platforms with feature matrices",
			"Feature gap identification with impact assessment",
			"Unique value proposition clarification and positioning strategy",
		},
		Complexity:                models.ComplexitySimple,
		QualityLevel:              models.QualityStandard,
		SkillsNeeded:              []string{"market research", "competitive analysis", "strategic thinking"},
		Resources:                 []string{"Competitor websites", "industry reports", "feature comparison tools"},
		TestingRequirements:       "Validate competitor information accuracy",
		DocumentationRequirements: "Competitive analysis report with recommendations",
		SuccessIndicators:         []string{"Clear understanding of competitive landscape and positioning"},
		Status:                    models.StatusNotStarted,
	}
}
