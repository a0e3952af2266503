package catalog

func option(id, category, title string) ServiceOption {
	return ServiceOption{Value: id, Label: category + " - " + title}
}

var residential = []ServiceOption{
	option("appliance-wiring", "Wiring", "Appliances"),
	option("breaker-replacement", "Residential", "Breakers Replacement"),
	option("ceiling-fan", "Installation", "Ceiling Fan"),
	option("code-corrections", "Residential", "Code Corrections"),
	option("rewiring", "Residential", "Rewiring"),
	option("outdoor-lighting", "Outdoor", "Lighting"),
	option("indoor-lighting", "Indoor", "Lighting"),
	option("pool-spa-lighting", "Repair", "Pool & Spa Lighting"),
	option("hot-tub-spa-pool-jacuzzi", "Wiring", "Hot Tub, Spa, Pool & Jacuzzi"),
	option("new-construction", "Electrician", "New Construction"),
	option("dedicated-circuits", "Additions", "Dedicated Circuits"),
	option("landscape-lighting", "Outdoor", "Landscape Lighting"),
}

var commercial = []ServiceOption{
	option("1-phase-3-phase", "Circuit Additions", "1 Phase / 3 Phase Circuits"),
	option("breakers-fuses", "Commercial", "Breakers & Fuses"),
	option("code-corrections", "Commercial", "Code Corrections"),
	option("panel-installation", "Commercial", "Electrical Panel Installation"),
	option("new-construction", "Wiring", "New Construction"),
	option("outdoor-lighting", "Outdoor", "Commercial Lighting"),
	option("indoor-lighting", "Indoor", "Commercial Lighting"),
	option("security-lighting", "Commercial", "Security Lighting"),
	option("transformers", "Installation", "Transformers"),
	option("office-lighting", "Commercial", "Office Lighting"),
	option("low-voltage-wiring", "Commercial", "Low Voltage Wiring"),
	option("cat6-installation", "Installation", "Cat 6 Installation"),
}

var evChargers = []ServiceOption{
	option("ev-charger-tesla", "EV Charger", "Tesla"),
	option("ev-charger-ford", "EV Charger", "Ford"),
	option("ev-charger-chevrolet", "EV Charger", "Chevrolet"),
	option("ev-charger-rivian", "EV Charger", "Rivian"),
}

var industrial = []ServiceOption{
	option("three-phase-power", "Industrial", "Three-Phase Power"),
	option("motor-controls", "Industrial", "Motor Controls"),
	option("industrial-lighting", "Industrial", "Industrial Lighting"),
	option("preventive-maintenance", "Industrial", "Preventive Maintenance"),
	option("power-quality-analysis", "Industrial", "Power Quality Analysis"),
}

var design = []ServiceOption{
	option("electrical-design", "Design & Planning", "Electrical Design"),
	option("load-calculations", "Design & Planning", "Load Calculations"),
	option("energy-audits", "Design & Planning", "Energy Audits"),
	option("code-consultation", "Design & Planning", "Code Consultation"),
	option("project-management", "Design & Planning", "Project Management"),
}
